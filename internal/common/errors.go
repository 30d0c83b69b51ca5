// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Pipeline errors. Each is wrapped with additional context via %w and
// matched with errors.Is.
var (
	// Normalization errors.
	ErrSchema           = errors.New("no usable date column")
	ErrAllMissingColumn = errors.New("column has no numeric values")

	// Series errors.
	ErrInsufficientData = errors.New("insufficient data")
	ErrDuplicateDate    = errors.New("duplicate dates")

	// ErrModelFit is raised by a forecasting strategy that could not fit the
	// series. The engine recovers from it by falling back.
	ErrModelFit = errors.New("model fit failed")

	// Request errors.
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrEmptyTable         = errors.New("table has no rows")
	ErrNotFound           = errors.New("not found")
	ErrDatabaseCorrupted  = errors.New("database corrupted")
	ErrMissingConfig      = errors.New("missing configuration")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// ErrorClass separates caller mistakes from internal failures.
type ErrorClass int

const (
	// ClassInternal is an unexpected failure (500-class).
	ClassInternal ErrorClass = iota
	// ClassInput is a malformed or insufficient request (400-class).
	ClassInput
)

func (c ErrorClass) String() string {
	if c == ClassInput {
		return "input"
	}
	return "internal"
}

// StatusCode returns the HTTP-style status for the class.
func (c ErrorClass) StatusCode() int {
	if c == ClassInput {
		return 400
	}
	return 500
}

var inputErrors = []error{
	ErrSchema,
	ErrAllMissingColumn,
	ErrInsufficientData,
	ErrDuplicateDate,
	ErrInvalidInput,
	ErrUnsupportedFormat,
	ErrEmptyTable,
	ErrNotFound,
}

// ClassOf reports whether err is the caller's fault.
func ClassOf(err error) ErrorClass {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Class
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return ClassInput
		}
	}
	return ClassInternal
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
	Class       ErrorClass
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error, classifying it from the
// wrapped error.
func NewUserError(userMessage string, err error) error {
	class := ClassInternal
	if err != nil {
		class = ClassOf(err)
	}
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
		Class:       class,
	}
}
