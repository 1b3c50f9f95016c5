package ledger

import "golang.org/x/xerrors"

var (
	// ErrAccessDenied is returned when an approve function refuses the
	// sender.
	ErrAccessDenied = xerrors.New("access denied")

	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = xerrors.New("object not found")

	// ErrInvalidTransaction is returned when a transaction is rejected before
	// its execution.
	ErrInvalidTransaction = xerrors.New("invalid transaction")
)
