// Package session implements the session credentials. A session is opened by
// an account for a given package and lasts for a limited time. The account
// signs a credential that delegates to an ephemeral session key, which then
// signs the requests to the key servers and receives the encrypted shares.
package session

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"time"

	"github.com/rs/xid"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/crypto"
	"golang.org/x/xerrors"
)

// ErrExpired is returned when a credential is used after its expiration.
var ErrExpired = xerrors.New("session expired")

// Clock is the source of time of the sessions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Credential is the statement of an account that delegates the right to
// request keys for a package to a session key, until the expiration.
type Credential struct {
	ID         string
	Address    account.Address
	AccountKey []byte
	SessionKey []byte
	PackageID  []byte
	CreatedAt  time.Time
	TTL        time.Duration
	Signature  []byte
}

// Expiration returns the time after which the credential is not valid
// anymore.
func (c Credential) Expiration() time.Time {
	return c.CreatedAt.Add(c.TTL)
}

// Digest returns the digest of the credential that is signed by the account.
func (c Credential) Digest() []byte {
	created := make([]byte, 8)
	binary.LittleEndian.PutUint64(created, uint64(c.CreatedAt.UnixMilli()))

	ttl := make([]byte, 8)
	binary.LittleEndian.PutUint64(ttl, uint64(c.TTL))

	return crypto.Digest(crypto.NewSha256Factory(),
		[]byte("sealbox-session"),
		[]byte(c.ID),
		c.Address[:],
		c.AccountKey,
		c.SessionKey,
		c.PackageID,
		created,
		ttl,
	)
}

// Verify returns nil if the credential is signed by the account it claims,
// not expired at the given time and scoped to the package.
func (c Credential) Verify(now time.Time, packageID []byte) error {
	pubkey, err := account.UnmarshalPublicKey(c.AccountKey)
	if err != nil {
		return xerrors.Errorf("invalid account key: %v", err)
	}

	if account.AddressOf(pubkey) != c.Address {
		return xerrors.Errorf("account key does not match address %v", c.Address)
	}

	err = account.Verify(pubkey, c.Digest(), c.Signature)
	if err != nil {
		return xerrors.Errorf("credential: %v", err)
	}

	if !bytes.Equal(c.PackageID, packageID) {
		return xerrors.Errorf("package mismatch: %#x != %#x", c.PackageID, packageID)
	}

	if now.After(c.Expiration()) {
		return xerrors.Errorf("expiration %v: %w",
			c.Expiration().Format(time.RFC3339), ErrExpired)
	}

	return nil
}

// GetSessionKey returns the public session key.
func (c Credential) GetSessionKey() (kyber.Point, error) {
	return account.UnmarshalPublicKey(c.SessionKey)
}

// Session is an opened session. It holds the ephemeral key pair of the
// session and the credential signed by the account.
type Session struct {
	cred  Credential
	key   account.Account
	clock Clock
}

type config struct {
	stream cipher.Stream
	clock  Clock
}

// Option is the type of options to open a session.
type Option func(*config)

// WithStream sets the random stream used to generate the session key.
func WithStream(stream cipher.Stream) Option {
	return func(cfg *config) {
		cfg.stream = stream
	}
}

// WithClock sets the clock of the session.
func WithClock(clock Clock) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// New opens a new session for the account, scoped to the package.
func New(acc account.Account, packageID []byte, ttl time.Duration, opts ...Option) (*Session, error) {
	if ttl <= 0 {
		return nil, xerrors.Errorf("invalid session duration %v", ttl)
	}

	cfg := config{clock: systemClock{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	key := account.Generate(cfg.stream)

	cred := Credential{
		ID:         xid.New().String(),
		Address:    acc.Address(),
		AccountKey: acc.PublicKeyBytes(),
		SessionKey: key.PublicKeyBytes(),
		PackageID:  append([]byte{}, packageID...),
		CreatedAt:  cfg.clock.Now().Truncate(time.Millisecond),
		TTL:        ttl,
	}

	sig, err := acc.Sign(cred.Digest())
	if err != nil {
		return nil, xerrors.Errorf("failed to sign credential: %v", err)
	}

	cred.Signature = sig

	s := &Session{
		cred:  cred,
		key:   key,
		clock: cfg.clock,
	}

	return s, nil
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.cred.ID
}

// Address returns the address of the account that opened the session.
func (s *Session) Address() account.Address {
	return s.cred.Address
}

// Credential returns the signed credential of the session.
func (s *Session) Credential() Credential {
	return s.cred
}

// Expired returns true if the session is past its expiration.
func (s *Session) Expired() bool {
	return s.clock.Now().After(s.cred.Expiration())
}

// Sign signs the message with the session key.
func (s *Session) Sign(msg []byte) ([]byte, error) {
	if s.Expired() {
		return nil, xerrors.Errorf("expiration %v: %w",
			s.cred.Expiration().Format(time.RFC3339), ErrExpired)
	}

	return s.key.Sign(msg)
}

// PublicKey returns the session public key.
func (s *Session) PublicKey() kyber.Point {
	return s.key.PublicKey()
}

// SecretKey returns the session secret key, used to open the responses of the
// key servers.
func (s *Session) SecretKey() kyber.Scalar {
	return s.key.SecretKey()
}
