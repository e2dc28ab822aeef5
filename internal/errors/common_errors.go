package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by type and message, so the package-level sentinel
// values below keep working with errors.Is after wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithContext returns a copy of the error with one more context entry. The
// receiver is left untouched so shared sentinels stay context-free.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:    e.Type,
		Message: e.Message,
		Cause:   e.Cause,
		Context: ctx,
	}
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Sentinel conditions surfaced by the pipeline. ErrEmptyResult is
// recoverable: it travels alongside an empty record slice and callers that
// treat "nothing matched" as an ordinary empty table may ignore it.
var (
	ErrEmptyResult  = NewAppError(ErrTypeNotFound, "no records matched the filter", nil)
	ErrInvalidRange = NewAppError(ErrTypeValidation, "start date is after end date", nil)
)

// Helper functions for common error types

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewMalformedDateLabelError reports a wide-table column header that does not
// parse as a calendar date. Fatal to the reshape call that raised it.
func NewMalformedDateLabelError(label string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, fmt.Sprintf("column header %q is not a valid date label", label), cause)
}

// NewFetchError reports a failed source download.
func NewFetchError(url string, cause error) *AppError {
	return NewNetworkError(fmt.Sprintf("failed to fetch %s", url), cause)
}
