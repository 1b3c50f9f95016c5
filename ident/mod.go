// Package ident implements the identifier binding used to tie a ciphertext to
// an access check.
//
// An identifier is the byte concatenation of a prefix and a nonce:
//
//	Identifier = Prefix || Nonce
//
// The prefix is either the address of the requester (address-bound) or the
// address of a policy object (policy-bound). There is no separator, length
// prefix or padding between the two parts. The encrypting party and the
// verifying party, which is usually an on-ledger approve function, must derive
// the exact same bytes from the same inputs.
//
// The package is stateless and every function is safe for concurrent use.
package ident

import (
	"bytes"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/xerrors"
)

// NonceSize is the default size of the nonce appended to the prefix.
const NonceSize = 5

// Identifier is the byte string an object is encrypted under.
type Identifier []byte

// String implements fmt.Stringer. It returns the lowercase hexadecimal
// encoding of the identifier, without the 0x prefix.
func (id Identifier) String() string {
	return hex.EncodeToString(id)
}

// Equal returns true when both identifiers are the same bytes.
func (id Identifier) Equal(other Identifier) bool {
	return bytes.Equal(id, other)
}

// Split returns the prefix and the nonce of the identifier assuming a prefix of
// the given length. It returns an error if the identifier is not longer than
// the prefix.
func (id Identifier) Split(prefixLen int) (prefix, nonce []byte, err error) {
	if prefixLen < 0 || len(id) <= prefixLen {
		return nil, nil, xerrors.Errorf("identifier of length %d cannot hold a "+
			"prefix of length %d and a nonce", len(id), prefixLen)
	}

	return id[:prefixLen], id[prefixLen:], nil
}

// Derive returns the identifier made of the prefix followed by the nonce. The
// result never shares memory with the inputs.
func Derive(prefix, nonce []byte) Identifier {
	id := make([]byte, len(prefix)+len(nonce))

	copy(id, prefix)
	copy(id[len(prefix):], nonce)

	return id
}

// DeriveHex decodes the textual prefix and nonce, and derives the identifier.
// The prefix is decoded first so that a malformed prefix is reported before the
// nonce is even considered.
func DeriveHex(prefixHex, nonceHex string) (Identifier, error) {
	prefix, err := DecodeHex(prefixHex)
	if err != nil {
		return nil, xerrors.Errorf("prefix: %w", err)
	}

	nonce, err := DecodeHex(nonceHex)
	if err != nil {
		return nil, xerrors.Errorf("nonce: %w", err)
	}

	return Derive(prefix, nonce), nil
}

// DecodeHex decodes a hexadecimal string. A single leading "0x" or "0X" is
// stripped before decoding. It returns a MalformedHexError when the string has
// an odd length or contains a non-hexadecimal character.
func DecodeHex(text string) ([]byte, error) {
	trimmed := text
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}

	buf, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, NewMalformedHexError(text, err)
	}

	return buf, nil
}

// EncodeHex returns the 0x-prefixed hexadecimal representation of the data.
func EncodeHex(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

// ParseIdentifier decodes an identifier from its textual form.
func ParseIdentifier(text string) (Identifier, error) {
	buf, err := DecodeHex(text)
	if err != nil {
		return nil, err
	}

	return Identifier(buf), nil
}

// NewNonce reads a fresh nonce of the given size from the random source. The
// nonce only needs to be probabilistically distinct.
func NewNonce(rand io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		return nil, xerrors.Errorf("invalid nonce size: %d", size)
	}

	nonce := make([]byte, size)

	_, err := io.ReadFull(rand, nonce)
	if err != nil {
		return nil, xerrors.Errorf("failed to read random nonce: %v", err)
	}

	return nonce, nil
}
