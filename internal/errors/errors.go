// Package errors provides the structured error type of the generator.
// Every error carries a category, a code and a message; storage uploads are
// the only retryable failures.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryConfig     ErrorCategory = "CONFIG"
	ErrCategorySchema     ErrorCategory = "SCHEMA"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryGeneration ErrorCategory = "GENERATION"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidValue  = "INVALID_VALUE"
	CodeUnknownFormat = "UNKNOWN_FORMAT"
	CodeLoadFailed    = "LOAD_FAILED"

	// Schema codes
	CodeSchemaMissing = "SCHEMA_MISSING"
	CodeSchemaApply   = "SCHEMA_APPLY_FAILED"

	// Storage codes
	CodeOpenFailed     = "OPEN_FAILED"
	CodeWriteFailed    = "WRITE_FAILED"
	CodeConstraint     = "CONSTRAINT"
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Generation codes
	CodeCancelled = "CANCELLED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// GenError is the structured error type used throughout the generator.
type GenError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *GenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *GenError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *GenError) Is(target error) bool {
	var t *GenError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new GenError.
func New(category ErrorCategory, code, message string) *GenError {
	return &GenError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new GenError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *GenError {
	return &GenError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *GenError) WithDetails(details map[string]interface{}) *GenError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a GenError.
func GetCategory(err error) ErrorCategory {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a GenError.
func GetCode(err error) string {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStorage && code == CodeUploadFailed
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *GenError {
	return New(ErrCategoryConfig, code, message)
}

func NewSchemaError(code, message string, cause error) *GenError {
	return Wrap(ErrCategorySchema, code, message, cause)
}

func NewStorageError(code, message string, cause error) *GenError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewGenerationError(code, message string, cause error) *GenError {
	return Wrap(ErrCategoryGeneration, code, message, cause)
}

func NewInternalError(message string, cause error) *GenError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
