// Package blob defines the blob store where the encrypted objects are
// published. The content is kept for a bounded number of epochs after which
// it is not available anymore.
package blob

import (
	"context"
	"encoding/base64"

	"go.dedis.ch/sealbox/crypto"
	"golang.org/x/xerrors"
)

var (
	// ErrNotFound is returned when no content exists for an ID.
	ErrNotFound = xerrors.New("blob not found")

	// ErrExpired is returned when the content of an ID is past its retention.
	ErrExpired = xerrors.New("blob expired")
)

// ID is the identifier of a blob, derived from its content.
type ID string

// ComputeID returns the ID of the content, which is the unpadded base64url
// encoding of its SHA-256 digest.
func ComputeID(data []byte) ID {
	digest := crypto.Digest(crypto.NewSha256Factory(), data)

	return ID(base64.RawURLEncoding.EncodeToString(digest))
}

// ParseID returns the ID from its textual form.
func ParseID(text string) (ID, error) {
	buf, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return "", xerrors.Errorf("malformed blob ID '%s': %v", text, err)
	}

	if len(buf) != 32 {
		return "", xerrors.Errorf("malformed blob ID '%s': invalid length %d", text, len(buf))
	}

	return ID(text), nil
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Store is the interface of a blob store.
type Store interface {
	// Put stores the content for the number of epochs and returns its ID.
	// Storing an existing content never shortens its retention.
	Put(ctx context.Context, data []byte, epochs int) (ID, error)

	// Get returns the content of the ID. It returns ErrNotFound or ErrExpired
	// when the content is not available.
	Get(ctx context.Context, id ID) ([]byte, error)
}

// CheckEpochs returns an error if the number of epochs is not positive.
func CheckEpochs(epochs int) error {
	if epochs <= 0 {
		return xerrors.Errorf("invalid number of epochs %d", epochs)
	}

	return nil
}
