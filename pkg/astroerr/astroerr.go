// Package astroerr defines the argument validation error shared by the
// conversion packages.
package astroerr

import (
	"errors"
	"fmt"
)

// ArgumentError reports an input that failed type or shape validation.
// It is always returned before any astronomical computation starts.
type ArgumentError struct {
	// Param is the name of the offending parameter (e.g. "az", "dec")
	Param string

	// Message describes what the parameter should have been
	Message string
}

// New returns an ArgumentError for param.
func New(param, message string) *ArgumentError {
	return &ArgumentError{Param: param, Message: message}
}

// Newf returns an ArgumentError with a formatted message.
func Newf(param, format string, args ...any) *ArgumentError {
	return &ArgumentError{Param: param, Message: fmt.Sprintf(format, args...)}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Param, e.Message)
}

// IsArgumentError reports whether err (or anything it wraps) is an
// ArgumentError and returns it.
func IsArgumentError(err error) (*ArgumentError, bool) {
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
