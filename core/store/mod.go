// Package store defines the view of the ledger state used by the policy
// functions. A snapshot gives access to the serialized objects by their
// identifier, and collects the changes of a single transaction.
package store

// Readable is the read access to the objects.
type Readable interface {
	// Get returns the serialized object of the key, or nil if it does not
	// exist.
	Get(key []byte) ([]byte, error)
}

// Writable is the write access to the objects.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Snapshot is a state of the ledger that can be read and modified. The
// changes are visible only through the snapshot until the ledger applies
// them.
type Snapshot interface {
	Readable
	Writable
}
