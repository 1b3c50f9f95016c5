// Package threshold implements the client side of the threshold encryption
// service.
//
// A random secret is split with a t-of-n Shamir sharing and each share is
// encrypted to one key server, with a tag that binds the share to the
// identifier. The data key is derived from the secret and seals the plaintext
// with XChaCha20-Poly1305. Decryption asks the key servers for the openings of
// their shares until t of them are recovered.
package threshold

import (
	"bytes"
	"context"
	"crypto/cipher"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/envelope"
	_ "go.dedis.ch/sealbox/envelope/json"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/seal"
	"go.dedis.ch/sealbox/seal/keyserver"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/xerrors"
)

// Client is the threshold encryption client.
//
// - implements seal.Service
type Client struct {
	servers []keyserver.KeyServer
	stream  cipher.Stream
	rand    io.Reader
	logger  zerolog.Logger
}

// Option is the type of options to create a client.
type Option func(*Client)

// WithStream sets the stream used to pick the secrets and the shares.
func WithStream(stream cipher.Stream) Option {
	return func(c *Client) {
		c.stream = stream
	}
}

// WithNonceReader sets the source of the nonces of the ciphertexts.
func WithNonceReader(r io.Reader) Option {
	return func(c *Client) {
		c.rand = r
	}
}

// NewClient returns a client for the committee of key servers. The order of
// the servers is the order of the shares.
func NewClient(servers []keyserver.KeyServer, opts ...Option) *Client {
	c := &Client{
		servers: servers,
		stream:  random.New(),
		rand:    crypto.CryptographicRandomGenerator{},
		logger:  sealbox.Logger.With().Str("role", "threshold").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Encrypt implements seal.Service. It returns the serialized encrypted object.
func (c *Client) Encrypt(ctx context.Context, req seal.EncryptRequest) ([]byte, error) {
	n := len(c.servers)

	if req.Threshold < 1 || req.Threshold > n {
		return nil, xerrors.Errorf("threshold %d out of range [1, %d]", req.Threshold, n)
	}

	if len(req.Identifier) == 0 {
		return nil, xerrors.New("empty identifier")
	}

	suite := account.Suite()

	secret := suite.Scalar().Pick(c.stream)
	poly := share.NewPriPoly(suite, req.Threshold, secret, c.stream)

	shares := make([]envelope.Share, n)

	for i, priShare := range poly.Shares(n) {
		server := c.servers[i]

		r := suite.Scalar().Pick(c.stream)
		commit := suite.Point().Mul(r, nil)
		shared := suite.Point().Mul(r, server.PublicKey())

		value, err := priShare.V.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal share: %v", err)
		}

		commitData, err := commit.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal commit: %v", err)
		}

		shares[i] = envelope.Share{
			ServerID: server.ID(),
			Index:    priShare.I,
			Commit:   commitData,
			Cipher:   keyserver.XOR(value, keyserver.DeriveMask(shared, req.Identifier, priShare.I)),
			Tag:      keyserver.DeriveTag(shared, req.Identifier, priShare.I),
		}
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}

	nonce, err := crypto.RandomBytes(c.rand, aead.NonceSize())
	if err != nil {
		return nil, xerrors.Errorf("failed to read nonce: %v", err)
	}

	ciphertext := aead.Seal(nil, nonce, req.Plaintext, additionalData(req.PackageID, req.Identifier))

	obj := envelope.NewObject(req.Identifier,
		envelope.WithPackageID(req.PackageID),
		envelope.WithShares(req.Threshold, shares...),
		envelope.WithCiphertext(nonce, ciphertext),
	)

	data, err := envelope.Encode(obj)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode object: %v", err)
	}

	return data, nil
}

type result struct {
	share *share.PriShare
	err   error
}

// Decrypt implements seal.Service. It requests the key servers concurrently
// and stops as soon as enough shares are recovered.
func (c *Client) Decrypt(ctx context.Context, req seal.DecryptRequest) ([]byte, error) {
	obj, err := envelope.Decode(req.Object)
	if err != nil {
		return nil, err
	}

	if req.Session == nil {
		return nil, xerrors.New("missing session")
	}

	id := obj.GetIdentifier()

	if !id.Equal(req.Proof.Identifier) {
		return nil, xerrors.Errorf("proof is for identifier %v and not %v",
			req.Proof.Identifier, id)
	}

	if !bytes.Equal(obj.GetPackageID(), req.Proof.PackageID) {
		return nil, xerrors.Errorf("proof is for package %#x and not %#x",
			req.Proof.PackageID, obj.GetPackageID())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	servers := make(map[string]keyserver.KeyServer, len(c.servers))
	for _, server := range c.servers {
		servers[server.ID()] = server
	}

	shares := obj.GetShares()
	results := make(chan result, len(shares))

	for _, s := range shares {
		server, found := servers[s.ServerID]
		if !found {
			results <- result{err: xerrors.Errorf("unknown key server '%s'", s.ServerID)}
			continue
		}

		go func(s envelope.Share) {
			priShare, err := c.fetch(ctx, server, id, s, req)
			results <- result{share: priShare, err: err}
		}(s)
	}

	threshold := obj.GetThreshold()
	recovered := make([]*share.PriShare, 0, threshold)

	var errs []error

	denied := false

	for range shares {
		res := <-results

		if res.err != nil {
			errs = append(errs, res.err)
			denied = denied || xerrors.Is(res.err, seal.ErrAccessDenied)

			c.logger.Debug().Err(res.err).Msg("share not recovered")
			continue
		}

		recovered = append(recovered, res.share)
		if len(recovered) == threshold {
			break
		}
	}

	if len(recovered) < threshold {
		if denied {
			return nil, xerrors.Errorf("%d/%d shares: %v: %w",
				len(recovered), threshold, errs, seal.ErrAccessDenied)
		}

		return nil, xerrors.Errorf("not enough shares %d/%d: %v", len(recovered), threshold, errs)
	}

	// Keep the recovery deterministic whatever the order of the answers.
	sort.Slice(recovered, func(i, j int) bool {
		return recovered[i].I < recovered[j].I
	})

	secret, err := share.RecoverSecret(account.Suite(), recovered, threshold, len(shares))
	if err != nil {
		return nil, xerrors.Errorf("failed to recover secret: %v", err)
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, obj.GetNonce(), obj.GetCiphertext(),
		additionalData(obj.GetPackageID(), id))
	if err != nil {
		return nil, xerrors.Errorf("failed to open: %v", err)
	}

	return plaintext, nil
}

func (c *Client) fetch(ctx context.Context, server keyserver.KeyServer, id ident.Identifier,
	s envelope.Share, req seal.DecryptRequest) (*share.PriShare, error) {

	fetch := keyserver.FetchRequest{
		Identifier: id,
		Index:      s.Index,
		Commit:     s.Commit,
		Tag:        s.Tag,
		Proof:      req.Proof,
	}

	err := fetch.Sign(req.Session)
	if err != nil {
		return nil, err
	}

	resp, err := server.FetchKey(ctx, fetch)
	if err != nil {
		return nil, err
	}

	shared, err := keyserver.OpenResponse(req.Session.SecretKey(), resp)
	if err != nil {
		return nil, xerrors.Errorf("key server '%s': %v", server.ID(), err)
	}

	tag := keyserver.DeriveTag(shared, id, s.Index)
	if !bytes.Equal(tag, s.Tag) {
		return nil, xerrors.Errorf("key server '%s': invalid opening", server.ID())
	}

	if len(s.Cipher) != len(tag) {
		return nil, xerrors.Errorf("key server '%s': invalid share length %d",
			server.ID(), len(s.Cipher))
	}

	value := keyserver.XOR(s.Cipher, keyserver.DeriveMask(shared, id, s.Index))

	v := account.Suite().Scalar()

	err = v.UnmarshalBinary(value)
	if err != nil {
		return nil, xerrors.Errorf("key server '%s': invalid share: %v", server.ID(), err)
	}

	return &share.PriShare{I: s.Index, V: v}, nil
}

func newAEAD(secret interface{ MarshalBinary() ([]byte, error) }) (cipher.AEAD, error) {
	data, err := secret.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal secret: %v", err)
	}

	key := crypto.Digest(crypto.NewSha256Factory(), []byte("dek"), data)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, xerrors.Errorf("failed to create cipher: %v", err)
	}

	return aead, nil
}

func additionalData(packageID []byte, id ident.Identifier) []byte {
	aad := make([]byte, 0, len(packageID)+len(id))
	aad = append(aad, packageID...)
	aad = append(aad, id...)

	return aad
}
