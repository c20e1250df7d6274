package core

import "github.com/pkg/errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports input the caller can fix. Err, when set, is the sentinel behind it.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	switch {
	case err.Err != nil:
		return err.Err.Error()
	case len(err.Fields) > 0:
		return err.Fields[0].Field + ": " + err.Fields[0].Error
	default:
		return "invalid input"
	}
}

func (err ValidationError) Unwrap() error { return err.Err }

// FieldMap returns the field errors keyed by field; the first error of a field wins.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Error
		}
	}
	return m
}

// ShutdownError means the process can no longer trust its state, typically its database connection.
type ShutdownError struct {
	Message string
}

func NewShutdownError(msg string) error {
	return &ShutdownError{Message: msg}
}

func (s ShutdownError) Error() string {
	return s.Message
}

func IsShutdown(err error) bool {
	var s *ShutdownError
	return errors.As(err, &s)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
