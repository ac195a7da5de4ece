package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means the judge boundary cannot run at all, e.g. no API key.
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// ValidationError carries a message safe to show to API callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvocationError is a transport or provider failure of a single model call.
type InvocationError struct {
	Model string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s: %v", e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// PersistenceError is a failed store write for one evaluation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
