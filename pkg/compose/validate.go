package compose

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct-tag validation over the whole model and reports the
// first violation as a structural error carrying a document path. The
// strict decoder catches the same problems earlier with source positions;
// this layer guards models built programmatically, for example through the
// CUE and Starlark front ends or directly in tests.
func (c *IncusCompose) Validate() error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("validate compose document: %w", err)
	}
	return translateFieldError(fieldErrors[0])
}

func translateFieldError(fe validator.FieldError) error {
	path := documentPath(fe.Namespace())
	switch fe.Tag() {
	case "required", "min":
		return &MissingFieldError{FieldPath: path}
	case "oneof":
		return &UnknownVariantError{
			FieldPath: path,
			Value:     fmt.Sprintf("%v", fe.Value()),
			Allowed:   allowedValuesFor(fe.Field()),
		}
	default:
		return fmt.Errorf("%s: failed %s validation", path, fe.Tag())
	}
}

// documentPath rewrites a validator namespace such as
// "IncusCompose.containers[web].image" into "containers.web.image". Map
// keys become path segments; sequence indices keep their bracket form so
// paths match the ones the decoder reports.
func documentPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	var b strings.Builder
	for i := 0; i < len(ns); i++ {
		if ns[i] != '[' {
			b.WriteByte(ns[i])
			continue
		}
		end := strings.IndexByte(ns[i:], ']')
		if end < 0 {
			b.WriteString(ns[i:])
			break
		}
		key := ns[i+1 : i+end]
		if isDigits(key) {
			b.WriteString("[" + key + "]")
		} else {
			b.WriteString("." + key)
		}
		i += end
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// allowedValuesFor maps an enum-tagged field back to its legal value set
// for UnknownVariant reporting.
func allowedValuesFor(field string) []string {
	switch field {
	case "instance_type":
		return InstanceTypes()
	case "type":
		return NetworkTypes()
	case "driver":
		return StorageDrivers()
	}
	return nil
}
