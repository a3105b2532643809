package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeSettings   ErrorType = "SETTINGS"
	ErrTypeWarmup     ErrorType = "WARMUP"
	ErrTypeTracing    ErrorType = "TRACING"
	ErrTypeWorker     ErrorType = "WORKER"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
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

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
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

// IsType reports whether any AppError in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewSettingsError creates an error for a missing or unusable settings value
func NewSettingsError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSettings, message, cause)
}

// NewWarmupError creates a startup warm-up error
func NewWarmupError(message string, cause error) *AppError {
	return NewAppError(ErrTypeWarmup, message, cause)
}

// NewTracingError creates a tracer construction or export error
func NewTracingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeTracing, message, cause)
}

// NewWorkerError creates a worker lifecycle error
func NewWorkerError(message string, cause error) *AppError {
	return NewAppError(ErrTypeWorker, message, cause)
}
