package policy

import (
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger"
	sjson "go.dedis.ch/sealbox/serde/json"
	"golang.org/x/xerrors"
)

const (
	// TypeAllowlist is the object type of the allowlists.
	TypeAllowlist = "allowlist"

	// TypeCap is the object type of the admin capabilities of the
	// allowlists.
	TypeCap = "allowlist_cap"

	// TypeRecord is the object type of the stored records.
	TypeRecord = "record"
)

// Allowlist is a policy object that grants access to its members.
type Allowlist struct {
	ID      ledger.ObjectID
	Name    string
	Members []account.Address
}

// HasMember returns true if the address is in the list.
func (l Allowlist) HasMember(addr account.Address) bool {
	for _, member := range l.Members {
		if member == addr {
			return true
		}
	}

	return false
}

// Cap is the admin capability of an allowlist. The owner of the capability is
// allowed to add and remove members.
type Cap struct {
	ID          ledger.ObjectID
	AllowlistID ledger.ObjectID
	Owner       account.Address
}

// Record is the on-ledger entry of a published secret. It stores the prefix and
// the nonce so that the identifier can be recomputed, and the blob ID of the
// encrypted object.
type Record struct {
	ID      ledger.ObjectID
	Owner   account.Address
	Binding ident.Binding
	Prefix  []byte
	Nonce   []byte
	BlobID  string
	Name    string
}

// Identifier returns the identifier the secret was sealed under.
func (r Record) Identifier() ident.Identifier {
	return ident.Derive(r.Prefix, r.Nonce)
}

// DecodeAllowlist returns the allowlist stored in the object.
func DecodeAllowlist(obj ledger.Object) (Allowlist, error) {
	var list Allowlist

	err := decode(obj, TypeAllowlist, &list)
	if err != nil {
		return list, err
	}

	list.ID = obj.ID

	return list, nil
}

// DecodeCap returns the capability stored in the object.
func DecodeCap(obj ledger.Object) (Cap, error) {
	var c Cap

	err := decode(obj, TypeCap, &c)
	if err != nil {
		return c, err
	}

	c.ID = obj.ID
	c.Owner = obj.Owner

	return c, nil
}

// DecodeRecord returns the record stored in the object.
func DecodeRecord(obj ledger.Object) (Record, error) {
	var rec Record

	err := decode(obj, TypeRecord, &rec)
	if err != nil {
		return rec, err
	}

	rec.ID = obj.ID
	rec.Owner = obj.Owner

	return rec, nil
}

func decode(obj ledger.Object, typ string, v interface{}) error {
	if obj.Type != typ {
		return xerrors.Errorf("object %v is a '%s' and not a '%s'", obj.ID, obj.Type, typ)
	}

	err := sjson.NewContext().Unmarshal(obj.Data, v)
	if err != nil {
		return xerrors.Errorf("failed to decode %s: %v", typ, err)
	}

	return nil
}
