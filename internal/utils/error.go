package utils

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"

	// Database errors
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrCodeQueryFailed       = "QUERY_FAILED"
	ErrCodeTransactionFailed = "TRANSACTION_FAILED"
	ErrCodeUnsupportedDriver = "UNSUPPORTED_DRIVER"

	// Credential errors
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s - %s", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}

	return &AppError{
		Code:    eb.code,
		Message: eb.message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

func getDefaultMessage(code string) string {
	messages := map[string]string{
		ErrCodeConfigInvalid:      "Invalid configuration",
		ErrCodeInternalError:      "Internal error",
		ErrCodeInvalidRequest:     "The request is invalid",
		ErrCodeDatabaseError:      "Database error",
		ErrCodeConnectionFailed:   "Database connection failed",
		ErrCodeQueryFailed:        "Query execution failed",
		ErrCodeTransactionFailed:  "Transaction failed",
		ErrCodeUnsupportedDriver:  "Unsupported database driver",
		ErrCodeInvalidCredentials: "Invalid credentials",
	}

	if msg, exists := messages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// Convenience functions for common error types
func NewDatabaseError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeDatabaseError).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewQueryError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeQueryFailed).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewConnectionError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeConnectionFailed).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewTransactionError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeTransactionFailed).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewConfigError(message string, cause error) *AppError {
	return NewErrorBuilder(ErrCodeConfigInvalid).
		WithMessage(message).
		WithCause(cause).
		Build()
}

// IsErrorType checks if an error, or any error it wraps, carries the given code
func IsErrorType(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
