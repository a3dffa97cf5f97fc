package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass groups operational errors by the layer that produced them.
// Semantic violations are not errors of this type; they have their own
// taxonomy in violations.go and accumulate instead of failing fast.
type ErrorClass string

const (
	// ErrorClassValidation covers misuse of a validated API, such as
	// asking for the effective configuration of an unknown container.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassConfig covers unreadable or malformed tool configuration
	// and input documents.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassStorage covers journal and lockfile persistence failures.
	ErrorClassStorage ErrorClass = "storage"

	// ErrorClassPolicy covers policy compilation and evaluation failures.
	ErrorClassPolicy ErrorClass = "policy"

	// ErrorClassInternal covers invariant breaks inside the engine.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError is a classified operational error with optional resource and
// operation context. It wraps an underlying cause where one exists and is
// compatible with errors.Is and errors.As.
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional machine-readable code.
	Code string `json:"code,omitempty"`

	// Resource names the entity involved, e.g. a container or file path.
	Resource string `json:"resource,omitempty"`

	// Operation names the operation that failed, e.g. "resolve" or "walk".
	Operation string `json:"operation,omitempty"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`

	// Details carries additional context-specific values.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Class, e.Message)

	var ctx []string
	if e.Resource != "" {
		ctx = append(ctx, "resource="+e.Resource)
	}
	if e.Operation != "" {
		ctx = append(ctx, "operation="+e.Operation)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches errors by class and code.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewValidationError creates a validation-class error.
func NewValidationError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewConfigError creates a config-class error.
func NewConfigError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassConfig, Message: message, Err: err}
}

// NewStorageError creates a storage-class error.
func NewStorageError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassStorage, Message: message, Err: err}
}

// NewPolicyError creates a policy-class error.
func NewPolicyError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassPolicy, Message: message, Err: err}
}

// NewInternalError creates an internal-class error.
func NewInternalError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassInternal, Message: message, Err: err}
}

// WithCode sets the machine-readable code and returns the error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithResource sets the resource context and returns the error.
func (e *EngineError) WithResource(resource string) *EngineError {
	e.Resource = resource
	return e
}

// WithOperation sets the operation context and returns the error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithDetail adds one context value and returns the error.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// classOf extracts the class of an error, or empty when the chain holds no
// EngineError.
func classOf(err error) ErrorClass {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// IsValidation reports whether the error chain holds a validation-class error.
func IsValidation(err error) bool { return classOf(err) == ErrorClassValidation }

// IsConfig reports whether the error chain holds a config-class error.
func IsConfig(err error) bool { return classOf(err) == ErrorClassConfig }

// IsStorage reports whether the error chain holds a storage-class error.
func IsStorage(err error) bool { return classOf(err) == ErrorClassStorage }

// IsPolicy reports whether the error chain holds a policy-class error.
func IsPolicy(err error) bool { return classOf(err) == ErrorClassPolicy }

// IsInternal reports whether the error chain holds an internal-class error.
func IsInternal(err error) bool { return classOf(err) == ErrorClassInternal }

// Common error codes.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeParse            = "PARSE_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeIO               = "IO_ERROR"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodePolicy           = "POLICY_ERROR"
	ErrCodeDependencyFailed = "DEPENDENCY_FAILED"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)
