package compose

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError is the interface implemented by all structural document errors.
// A structural error means the document could not be turned into a typed
// model at all; it is fatal and carries enough context to render a message
// without re-inspecting the source.
type ParseError interface {
	error

	// Path returns the document path of the offending field,
	// e.g. "containers.web.image".
	Path() string

	// Position returns the source line and column (1-indexed, 0 when unknown).
	Position() (line, column int)
}

// MissingFieldError reports a required field that is absent or empty.
type MissingFieldError struct {
	// FieldPath is the document path of the missing field.
	FieldPath string

	// Line is the source line of the enclosing node (1-indexed).
	Line int

	// Column is the source column of the enclosing node (1-indexed).
	Column int
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.FieldPath)
}

// Path returns the document path of the missing field.
func (e *MissingFieldError) Path() string { return e.FieldPath }

// Position returns the source position of the enclosing node.
func (e *MissingFieldError) Position() (int, int) { return e.Line, e.Column }

// TypeMismatchError reports a field present with the wrong shape.
type TypeMismatchError struct {
	// FieldPath is the document path of the offending field.
	FieldPath string

	// Expected is the expected shape (string, integer, boolean, mapping, sequence).
	Expected string

	// Actual is the shape found in the document.
	Actual string

	// Line is the source line of the offending node (1-indexed).
	Line int

	// Column is the source column of the offending node (1-indexed).
	Column int
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.FieldPath, e.Expected, e.Actual)
}

// Path returns the document path of the offending field.
func (e *TypeMismatchError) Path() string { return e.FieldPath }

// Position returns the source position of the offending node.
func (e *TypeMismatchError) Position() (int, int) { return e.Line, e.Column }

// UnknownVariantError reports an enum field carrying a value outside its
// legal set.
type UnknownVariantError struct {
	// FieldPath is the document path of the enum field.
	FieldPath string

	// Value is the offending value found in the document.
	Value string

	// Allowed enumerates the legal values in declaration order.
	Allowed []string

	// Line is the source line of the offending node (1-indexed).
	Line int

	// Column is the source column of the offending node (1-indexed).
	Column int
}

// Error implements the error interface.
func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("%s: unknown value %q (must be one of: %s)",
		e.FieldPath, e.Value, strings.Join(e.Allowed, ", "))
}

// Path returns the document path of the enum field.
func (e *UnknownVariantError) Path() string { return e.FieldPath }

// Position returns the source position of the offending node.
func (e *UnknownVariantError) Position() (int, int) { return e.Line, e.Column }

// UnknownFieldError reports a field the schema does not define. Strict
// decoding rejects these at every level to catch typos.
type UnknownFieldError struct {
	// FieldPath is the document path of the enclosing entity.
	FieldPath string

	// Field is the unrecognized key.
	Field string

	// Line is the source line of the offending key (1-indexed).
	Line int

	// Column is the source column of the offending key (1-indexed).
	Column int
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	if e.FieldPath == "" {
		return fmt.Sprintf("unknown field %q", e.Field)
	}
	return fmt.Sprintf("%s: unknown field %q", e.FieldPath, e.Field)
}

// Path returns the document path of the enclosing entity.
func (e *UnknownFieldError) Path() string { return e.FieldPath }

// Position returns the source position of the offending key.
func (e *UnknownFieldError) Position() (int, int) { return e.Line, e.Column }

// DuplicateFieldError reports a mapping key defined more than once.
type DuplicateFieldError struct {
	// FieldPath is the document path of the enclosing entity.
	FieldPath string

	// Field is the duplicated key.
	Field string

	// Line is the source line of the second definition (1-indexed).
	Line int

	// Column is the source column of the second definition (1-indexed).
	Column int
}

// Error implements the error interface.
func (e *DuplicateFieldError) Error() string {
	if e.FieldPath == "" {
		return fmt.Sprintf("duplicate field %q", e.Field)
	}
	return fmt.Sprintf("%s: duplicate field %q", e.FieldPath, e.Field)
}

// Path returns the document path of the enclosing entity.
func (e *DuplicateFieldError) Path() string { return e.FieldPath }

// Position returns the source position of the duplicate key.
func (e *DuplicateFieldError) Position() (int, int) { return e.Line, e.Column }

// UnsupportedVersionError reports a document declaring a schema version this
// package does not implement. The version gate runs before any field
// construction, so nothing else is reported alongside it.
type UnsupportedVersionError struct {
	// Found is the version declared by the document.
	Found string

	// Supported enumerates the versions this package accepts.
	Supported []string

	// Line is the source line of the version field (1-indexed).
	Line int

	// Column is the source column of the version field (1-indexed).
	Column int
}

// Error implements the error interface.
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported schema version %q (supported: %s)",
		e.Found, strings.Join(e.Supported, ", "))
}

// Path returns the document path of the version field.
func (e *UnsupportedVersionError) Path() string { return "version" }

// Position returns the source position of the version field.
func (e *UnsupportedVersionError) Position() (int, int) { return e.Line, e.Column }

// IsParseError returns true if err is (or wraps) a structural document error.
func IsParseError(err error) bool {
	var pe ParseError
	return errors.As(err, &pe)
}
