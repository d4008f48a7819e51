package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown is an error the process cannot recover from, such as a full or read-only data volume.
// The API stops gracefully when one reaches its error handler.
type shutdown struct {
	message string
	err     error
}

func NewShutdownError(msg string, err error) error {
	return &shutdown{message: msg, err: err}
}

func (s *shutdown) Error() string {
	if s.err == nil {
		return s.message
	}
	return s.message + ": " + s.err.Error()
}

func (s *shutdown) Unwrap() error { return s.err }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
