package ident

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrMalformedHex is the sentinel that every MalformedHexError matches.
var ErrMalformedHex = MalformedHexError{}

// MalformedHexError is returned when a textual address, policy ID or nonce
// cannot be decoded to bytes.
type MalformedHexError struct {
	Input string
	Err   error
}

// NewMalformedHexError returns a new error for the given input.
func NewMalformedHexError(input string, err error) MalformedHexError {
	return MalformedHexError{
		Input: input,
		Err:   err,
	}
}

// Error implements error.
func (e MalformedHexError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed hex input '%s'", e.Input)
	}

	return fmt.Sprintf("malformed hex input '%s': %v", e.Input, e.Err)
}

// Is returns true when the target is also a malformed hex error.
func (e MalformedHexError) Is(err error) bool {
	_, ok := err.(MalformedHexError)
	return ok
}

// Unwrap returns the decoding error.
func (e MalformedHexError) Unwrap() error {
	return e.Err
}

// IsMalformedHex returns true if the error or one of the errors it wraps is a
// malformed hex error.
func IsMalformedHex(err error) bool {
	return xerrors.Is(err, ErrMalformedHex)
}
