// Package keyserver implements the key servers of the threshold encryption
// service. A key server holds one ElGamal key pair. It releases the point that
// opens its share of an encrypted object to a session only after checking the
// credential, the request signature, the binding of the share to the
// identifier and the approval of the ledger.
package keyserver

import (
	"context"
	"crypto/cipher"
	"encoding/binary"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/session"
	"golang.org/x/xerrors"
)

// ErrInvalidRequest is returned when a request is malformed or not properly
// signed.
var ErrInvalidRequest = xerrors.New("invalid request")

// KeyServer is the interface of a key server, either local or remote.
type KeyServer interface {
	// ID returns the identifier of the key server.
	ID() string

	// PublicKey returns the public key the shares are encrypted to.
	PublicKey() kyber.Point

	// FetchKey returns the encrypted opening of a share if the request is
	// authorized.
	FetchKey(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// Key is the key pair of a key server.
type Key struct {
	Secret kyber.Scalar
	Public kyber.Point
}

// GenerateKey returns a new key pair. A nil stream uses the default random
// source.
func GenerateKey(stream cipher.Stream) Key {
	if stream == nil {
		stream = random.New()
	}

	suite := account.Suite()
	secret := suite.Scalar().Pick(stream)

	return Key{
		Secret: secret,
		Public: suite.Point().Mul(secret, nil),
	}
}

// FetchRequest is the request of a session to obtain the opening of one
// share.
type FetchRequest struct {
	Credential session.Credential
	Identifier ident.Identifier
	Index      int
	Commit     []byte
	Tag        []byte
	Proof      ledger.ApproveCall
	Signature  []byte
}

// Digest returns the digest of the request that the session key signs.
func (r FetchRequest) Digest() []byte {
	index := make([]byte, 8)
	binary.LittleEndian.PutUint64(index, uint64(r.Index))

	return crypto.Digest(crypto.NewSha256Factory(),
		[]byte("sealbox-fetch"),
		r.Credential.Digest(),
		lenPrefixed(r.Identifier),
		index,
		lenPrefixed(r.Commit),
		lenPrefixed(r.Tag),
		lenPrefixed(r.Proof.PackageID),
		lenPrefixed([]byte(r.Proof.Function)),
		lenPrefixed(r.Proof.Identifier),
		r.Proof.Object[:],
	)
}

// Sign signs the request with the session key and sets the credential.
func (r *FetchRequest) Sign(s *session.Session) error {
	r.Credential = s.Credential()

	sig, err := s.Sign(r.Digest())
	if err != nil {
		return xerrors.Errorf("failed to sign request: %w", err)
	}

	r.Signature = sig

	return nil
}

// FetchResponse is the opening point of a share, ElGamal-encrypted to the
// session key.
type FetchResponse struct {
	R []byte
	C []byte
}

// ServiceInfo is the public description of a key server.
type ServiceInfo struct {
	ID        string `json:"id"`
	PublicKey []byte `json:"pubkey"`
	PackageID []byte `json:"package"`
}

func lenPrefixed(data []byte) []byte {
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)

	return buf
}
