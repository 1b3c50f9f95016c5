// Package kv defines the key/value database of a node. The local ledger keeps
// its objects and nonces in it, and the local blob store its entries.
//
// The default implementation uses bbolt (https://github.com/etcd-io/bbolt).
package kv

// Bucket is a named set of keys of the database.
type Bucket interface {
	// Get returns the value of the key, or nil if the key does not exist. The
	// value is only valid during the transaction.
	Get(key []byte) []byte

	// Set assigns the value to the key.
	Set(key, value []byte) error

	// Delete removes the key.
	Delete(key []byte) error

	// Scan iterates in key order over the keys starting with the prefix. It
	// stops at the first error of the callback.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// ReadableTx is a read-only transaction.
type ReadableTx interface {
	// GetBucket returns the bucket of the name, or nil if it does not exist.
	GetBucket(name []byte) Bucket
}

// WritableTx is a transaction that can modify the database. The changes are
// applied only if the transaction returns without error.
type WritableTx interface {
	ReadableTx

	// GetBucketOrCreate returns the bucket of the name and creates it if
	// necessary.
	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is the interface of the key/value database.
type DB interface {
	// View runs the read-only transaction.
	View(fn func(ReadableTx) error) error

	// Update runs the writable transaction.
	Update(fn func(WritableTx) error) error

	// Close releases the database. The transactions fail afterwards.
	Close() error
}
