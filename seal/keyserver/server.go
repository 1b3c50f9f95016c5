package keyserver

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/subtle"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/seal"
	"go.dedis.ch/sealbox/session"
	"golang.org/x/xerrors"
)

var promRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sealbox_keyserver_requests_total",
	Help: "total number of key requests by outcome",
}, []string{"server", "outcome"})

func init() {
	sealbox.PromCollectors = append(sealbox.PromCollectors, promRequests)
}

const (
	outcomeServed = "served"
	outcomeDenied = "denied"
	outcomeFailed = "failed"
)

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Server is a local key server.
//
// - implements keyserver.KeyServer
type Server struct {
	id        string
	key       Key
	packageID []byte
	auth      ledger.Authorizer
	clock     session.Clock
	stream    cipher.Stream
	logger    zerolog.Logger
}

// ServerOption is the type of options to create a server.
type ServerOption func(*Server)

// WithClock sets the clock used to check the credentials.
func WithClock(clock session.Clock) ServerOption {
	return func(s *Server) {
		s.clock = clock
	}
}

// NewServer returns a key server with the key, which serves the requests for
// the package by asking the authorizer.
func NewServer(id string, key Key, packageID []byte, auth ledger.Authorizer, opts ...ServerOption) *Server {
	srv := &Server{
		id:        id,
		key:       key,
		packageID: append([]byte{}, packageID...),
		auth:      auth,
		clock:     systemClock{},
		stream:    random.New(),
		logger:    sealbox.Logger.With().Str("role", "keyserver").Str("id", id).Logger(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// ID implements keyserver.KeyServer.
func (s *Server) ID() string {
	return s.id
}

// PublicKey implements keyserver.KeyServer.
func (s *Server) PublicKey() kyber.Point {
	return s.key.Public
}

// Info returns the public description of the server.
func (s *Server) Info() ServiceInfo {
	pubkey, _ := s.key.Public.MarshalBinary()

	return ServiceInfo{
		ID:        s.id,
		PublicKey: pubkey,
		PackageID: append([]byte{}, s.packageID...),
	}
}

// FetchKey implements keyserver.KeyServer. It checks the request then returns
// the opening point of the share encrypted to the session key.
func (s *Server) FetchKey(ctx context.Context, req FetchRequest) (FetchResponse, error) {
	resp, err := s.fetchKey(ctx, req)
	if err != nil {
		outcome := outcomeFailed
		if xerrors.Is(err, seal.ErrAccessDenied) {
			outcome = outcomeDenied
		}

		promRequests.WithLabelValues(s.id, outcome).Inc()

		s.logger.Info().
			Str("outcome", outcome).
			Stringer("address", req.Credential.Address).
			Stringer("identifier", req.Identifier).
			Err(err).
			Msg("key request refused")

		return resp, err
	}

	promRequests.WithLabelValues(s.id, outcomeServed).Inc()

	s.logger.Debug().
		Stringer("address", req.Credential.Address).
		Stringer("identifier", req.Identifier).
		Msg("key request served")

	return resp, nil
}

func (s *Server) fetchKey(ctx context.Context, req FetchRequest) (FetchResponse, error) {
	err := req.Credential.Verify(s.clock.Now(), s.packageID)
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("credential: %v: %w", err, ErrInvalidRequest)
	}

	sessionKey, err := req.Credential.GetSessionKey()
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("session key: %v: %w", err, ErrInvalidRequest)
	}

	err = account.Verify(sessionKey, req.Digest(), req.Signature)
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("request: %v: %w", err, ErrInvalidRequest)
	}

	commit, err := account.UnmarshalPublicKey(req.Commit)
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("commit: %v: %w", err, ErrInvalidRequest)
	}

	shared := account.Suite().Point().Mul(s.key.Secret, commit)

	tag := DeriveTag(shared, req.Identifier, req.Index)
	if subtle.ConstantTimeCompare(tag, req.Tag) != 1 {
		return FetchResponse{}, xerrors.Errorf("share is not bound to the identifier: %w",
			ErrInvalidRequest)
	}

	if !bytes.Equal(req.Proof.PackageID, s.packageID) {
		return FetchResponse{}, xerrors.Errorf("proof targets package %#x: %w",
			req.Proof.PackageID, seal.ErrAccessDenied)
	}

	if !req.Proof.Identifier.Equal(req.Identifier) {
		return FetchResponse{}, xerrors.Errorf("proof is for identifier %v: %w",
			req.Proof.Identifier, seal.ErrAccessDenied)
	}

	err = s.auth.Approve(ctx, req.Credential.Address, req.Proof)
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("%v: %w", err, seal.ErrAccessDenied)
	}

	R, C := ElGamalEncrypt(sessionKey, shared, s.stream)

	resp := FetchResponse{}

	resp.R, err = R.MarshalBinary()
	if err != nil {
		return resp, xerrors.Errorf("failed to marshal R: %v", err)
	}

	resp.C, err = C.MarshalBinary()
	if err != nil {
		return resp, xerrors.Errorf("failed to marshal C: %v", err)
	}

	return resp, nil
}
