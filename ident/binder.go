package ident

import (
	"bytes"
	"strings"

	"golang.org/x/xerrors"
)

// Binding is the kind of prefix an identifier is bound to.
type Binding int

const (
	// AddressBound identifiers use the requester's own address as the prefix.
	// Only that address can reconstruct and get approval for the identifier.
	AddressBound Binding = iota

	// PolicyBound identifiers use the address of a policy object as the
	// prefix. Anyone satisfying the rule of the policy can get approval.
	PolicyBound
)

// String implements fmt.Stringer.
func (b Binding) String() string {
	switch b {
	case AddressBound:
		return "address"
	case PolicyBound:
		return "policy"
	default:
		return "unknown"
	}
}

// ParseBinding returns the binding matching the name, which is case
// insensitive.
func ParseBinding(name string) (Binding, error) {
	switch strings.ToLower(name) {
	case "address", "owner":
		return AddressBound, nil
	case "policy", "allowlist":
		return PolicyBound, nil
	default:
		return 0, xerrors.Errorf("unknown binding '%s'", name)
	}
}

// Binder derives identifiers for a fixed prefix. The binding is explicit so
// that the two variants are never unified by accident.
type Binder struct {
	binding Binding
	prefix  []byte
}

// NewAddressBinder returns a binder that uses the requester's address as the
// prefix.
func NewAddressBinder(addr []byte) Binder {
	return Binder{
		binding: AddressBound,
		prefix:  append([]byte{}, addr...),
	}
}

// NewPolicyBinder returns a binder that uses the policy object's address as
// the prefix.
func NewPolicyBinder(policyID []byte) Binder {
	return Binder{
		binding: PolicyBound,
		prefix:  append([]byte{}, policyID...),
	}
}

// Binding returns the binding variant of the binder.
func (b Binder) Binding() Binding {
	return b.binding
}

// Prefix returns a copy of the prefix.
func (b Binder) Prefix() []byte {
	return append([]byte{}, b.prefix...)
}

// Bind returns the identifier for the nonce.
func (b Binder) Bind(nonce []byte) Identifier {
	return Derive(b.prefix, nonce)
}

// Matches recomputes the identifier from the prefix of the binder and the
// trailing bytes of the given identifier. It returns the nonce and true when
// the recomputed identifier is exactly the given one.
func (b Binder) Matches(id Identifier) ([]byte, bool) {
	if len(id) <= len(b.prefix) {
		return nil, false
	}

	nonce := id[len(b.prefix):]

	if !bytes.Equal(b.Bind(nonce), id) {
		return nil, false
	}

	return append([]byte{}, nonce...), true
}
