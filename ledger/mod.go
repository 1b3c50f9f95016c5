// Package ledger defines the primitives to interact with the ledger: submit
// signed transactions that update the on-ledger policy state, read objects and
// run the approve functions that decide whether a principal may obtain the
// keys of an identifier.
package ledger

import (
	"context"
	"encoding/hex"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ident"
	"golang.org/x/xerrors"
)

// ObjectIDSize is the size in bytes of an object identifier.
const ObjectIDSize = 32

// ObjectID is the identifier of an object stored on the ledger.
type ObjectID [ObjectIDSize]byte

// ParseObjectID returns the object ID from its hexadecimal form, with or
// without the 0x prefix.
func ParseObjectID(s string) (ObjectID, error) {
	data, err := ident.DecodeHex(s)
	if err != nil {
		return ObjectID{}, err
	}

	return ObjectIDFromBytes(data)
}

// ObjectIDFromBytes returns the object ID of the given bytes.
func ObjectIDFromBytes(data []byte) (ObjectID, error) {
	var id ObjectID

	if len(data) != ObjectIDSize {
		return id, xerrors.Errorf("invalid object ID length %d", len(data))
	}

	copy(id[:], data)

	return id, nil
}

// Bytes returns a copy of the identifier bytes.
func (id ObjectID) Bytes() []byte {
	return append([]byte{}, id[:]...)
}

// IsZero returns true if the identifier is not set.
func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

// String implements fmt.Stringer. It returns the 0x-prefixed hexadecimal form.
func (id ObjectID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ObjectID) UnmarshalText(text []byte) error {
	oid, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}

	*id = oid

	return nil
}

// Object is an object stored on the ledger. The data is interpreted by the
// contract according to the type.
type Object struct {
	ID    ObjectID
	Type  string
	Owner account.Address
	Data  []byte
}

// Receipt is returned after a transaction is executed.
type Receipt struct {
	TxID    []byte
	Created []ObjectID
}

// ApproveCall is the description of an approve function to run for a given
// identifier. It is the proof a principal presents to the key servers.
type ApproveCall struct {
	PackageID  []byte
	Function   string
	Identifier ident.Identifier
	// Object is the policy object or stored record the function reads, if
	// any.
	Object ObjectID
}

// Authorizer is the interface to run the approve functions.
type Authorizer interface {
	// Approve runs the approve function as the sender without modifying the
	// state. It returns nil if the access is granted, otherwise an error that
	// matches ErrAccessDenied when the policy refuses the sender.
	Approve(ctx context.Context, sender account.Address, call ApproveCall) error
}

// Service is the interface of the ledger.
type Service interface {
	Authorizer

	// Submit executes the transaction and returns the receipt.
	Submit(ctx context.Context, tx Transaction) (Receipt, error)

	// GetNonce returns the next nonce expected from the address.
	GetNonce(ctx context.Context, addr account.Address) (uint64, error)

	// GetObject returns the object if it exists, otherwise an error that
	// matches ErrNotFound.
	GetObject(ctx context.Context, id ObjectID) (Object, error)

	// OwnedObjects returns the identifiers of the objects of the given type
	// owned by the address. An empty type returns all of them.
	OwnedObjects(ctx context.Context, owner account.Address, typ string) ([]ObjectID, error)
}
