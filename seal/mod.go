// Package seal defines the encryption service. Data is encrypted under an
// identifier, and decrypted only by the principals for whom an approve
// function of the ledger succeeds for that identifier.
package seal

import (
	"context"

	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/session"
	"golang.org/x/xerrors"
)

// ErrAccessDenied is returned when the key servers refuse to release the keys
// of an identifier.
var ErrAccessDenied = xerrors.New("seal: access denied")

// EncryptRequest is the request to encrypt data under an identifier.
type EncryptRequest struct {
	// Threshold is the number of key servers required to decrypt.
	Threshold int
	// PackageID is the package of the approve functions.
	PackageID []byte
	// Identifier is the identity the data is encrypted to.
	Identifier ident.Identifier
	// Plaintext is the data to encrypt.
	Plaintext []byte
}

// DecryptRequest is the request to decrypt an encrypted object.
type DecryptRequest struct {
	// Object is the serialized encrypted object.
	Object []byte
	// Proof is the approve call the key servers run before releasing their
	// share.
	Proof ledger.ApproveCall
	// Session is the session of the requester.
	Session *session.Session
}

// Service is the interface of the encryption service.
type Service interface {
	// Encrypt returns the serialized encrypted object.
	Encrypt(ctx context.Context, req EncryptRequest) ([]byte, error)

	// Decrypt returns the plaintext of the object. The error matches
	// ErrAccessDenied when the key servers refuse the request.
	Decrypt(ctx context.Context, req DecryptRequest) ([]byte, error)
}
