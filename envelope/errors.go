package envelope

import (
	"golang.org/x/xerrors"
)

// ErrInvalidFormat is the sentinel that every InvalidFormatError matches.
var ErrInvalidFormat = InvalidFormatError{}

// InvalidFormatError is returned when bytes do not decode to a well-formed
// encrypted object.
type InvalidFormatError struct {
	Err error
}

// NewInvalidFormatError returns a new error wrapping the cause.
func NewInvalidFormatError(err error) InvalidFormatError {
	return InvalidFormatError{Err: err}
}

// Error implements error.
func (e InvalidFormatError) Error() string {
	if e.Err == nil {
		return "invalid encrypted object format"
	}

	return "invalid encrypted object format: " + e.Err.Error()
}

// Is returns true when the target is also an invalid format error.
func (e InvalidFormatError) Is(err error) bool {
	_, ok := err.(InvalidFormatError)
	return ok
}

// Unwrap returns the cause.
func (e InvalidFormatError) Unwrap() error {
	return e.Err
}

// IsInvalidFormat returns true if the error or one of the errors it wraps is
// an invalid format error.
func IsInvalidFormat(err error) bool {
	return xerrors.Is(err, ErrInvalidFormat)
}
