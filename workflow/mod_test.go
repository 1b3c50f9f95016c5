package workflow

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/blob/kvblob"
	"go.dedis.ch/sealbox/core/store/kv"
	"go.dedis.ch/sealbox/envelope"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/internal/testing/fake"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/ledger/local"
	"go.dedis.ch/sealbox/results"
	"go.dedis.ch/sealbox/seal"
	"go.dedis.ch/sealbox/seal/keyserver"
	"go.dedis.ch/sealbox/seal/threshold"
	"golang.org/x/xerrors"
)

func TestEncryptAndPublish_AddressBound(t *testing.T) {
	net := makeNetwork(t)
	env := net.env(account.Generate(nil))
	ctx := context.Background()

	pub, err := env.EncryptAndPublish(ctx, []byte("api-key"), Target{Name: "my-key"})
	require.NoError(t, err)

	addr := env.Account.Address()
	require.Equal(t, addr[:], pub.Prefix)
	require.Len(t, pub.Nonce, ident.NonceSize)
	require.Equal(t, ident.Derive(pub.Prefix, pub.Nonce), pub.Identifier)

	entry, found := env.Results.Find("my-key")
	require.True(t, found)
	require.Equal(t, "address", entry.Binding)
	require.Equal(t, pub.BlobID.String(), entry.BlobID)
	require.Equal(t, pub.Record.String(), entry.Record)
	require.Equal(t, ident.EncodeHex(pub.Identifier), entry.Identifier)

	// From the record.
	plaintext, err := env.FetchAndDecrypt(ctx, Lookup{Record: pub.Record})
	require.NoError(t, err)
	require.Equal(t, "api-key", string(plaintext))

	// From the blob and the identifier parts.
	plaintext, err = env.FetchAndDecrypt(ctx, Lookup{
		BlobID:  pub.BlobID,
		Binding: ident.AddressBound,
		Prefix:  pub.Prefix,
		Nonce:   pub.Nonce,
	})
	require.NoError(t, err)
	require.Equal(t, "api-key", string(plaintext))

	// From the blob only.
	plaintext, err = env.FetchAndDecrypt(ctx, Lookup{BlobID: pub.BlobID})
	require.NoError(t, err)
	require.Equal(t, "api-key", string(plaintext))

	require.Contains(t, env.Out.(*bytes.Buffer).String(), "Decrypted 7 bytes")

	// Another account cannot decrypt.
	other := net.env(account.Generate(nil))

	_, err = other.FetchAndDecrypt(ctx, Lookup{Record: pub.Record})
	require.True(t, xerrors.Is(err, seal.ErrAccessDenied))

	_, err = other.FetchAndDecrypt(ctx, Lookup{BlobID: pub.BlobID})
	require.True(t, xerrors.Is(err, seal.ErrAccessDenied))
}

func TestEncryptAndPublish_PolicyBound(t *testing.T) {
	net := makeNetwork(t)
	owner := net.env(account.Generate(nil))
	member := net.env(account.Generate(nil))
	stranger := net.env(account.Generate(nil))
	ctx := context.Background()

	listID, capID, err := owner.CreateAllowlist(ctx, "team")
	require.NoError(t, err)

	require.NoError(t, owner.AddMember(ctx, capID, member.Account.Address()))

	pub, err := owner.EncryptAndPublish(ctx, []byte("shared"), Target{
		Binding:   ident.PolicyBound,
		Allowlist: listID,
		Name:      "team-key",
	})
	require.NoError(t, err)
	require.Equal(t, listID[:], pub.Prefix)

	entry, found := owner.Results.Find("team-key")
	require.True(t, found)
	require.Equal(t, listID.String(), entry.Allowlist)

	plaintext, err := member.FetchAndDecrypt(ctx, Lookup{Record: pub.Record})
	require.NoError(t, err)
	require.Equal(t, "shared", string(plaintext))

	plaintext, err = member.FetchAndDecrypt(ctx, Lookup{BlobID: pub.BlobID, Binding: ident.PolicyBound})
	require.NoError(t, err)
	require.Equal(t, "shared", string(plaintext))

	_, err = stranger.FetchAndDecrypt(ctx, Lookup{Record: pub.Record})
	require.True(t, xerrors.Is(err, seal.ErrAccessDenied))

	// The owner is not a member of its own allowlist.
	_, err = owner.FetchAndDecrypt(ctx, Lookup{BlobID: pub.BlobID, Binding: ident.PolicyBound})
	require.True(t, xerrors.Is(err, seal.ErrAccessDenied))

	require.NoError(t, owner.RemoveMember(ctx, capID, member.Account.Address()))

	_, err = member.FetchAndDecrypt(ctx, Lookup{Record: pub.Record})
	require.True(t, xerrors.Is(err, seal.ErrAccessDenied))
}

func TestEncryptAndPublish_Failures(t *testing.T) {
	net := makeNetwork(t)
	env := net.env(account.Generate(nil))
	ctx := context.Background()

	_, err := env.EncryptAndPublish(ctx, nil, Target{Binding: ident.PolicyBound})
	require.True(t, xerrors.Is(err, ledger.ErrNotFound))

	_, err = env.EncryptAndPublish(ctx, nil, Target{Binding: ident.Binding(5)})
	require.EqualError(t, err, "unknown binding unknown")

	env.Rand = fake.BadReader{}
	_, err = env.EncryptAndPublish(ctx, nil, Target{})
	require.Error(t, err)

	env = net.env(account.Generate(nil))
	env.Epochs = 0
	_, err = env.EncryptAndPublish(ctx, nil, Target{})
	require.EqualError(t, err, "failed to store: invalid number of epochs 0")

	env = net.env(account.Generate(nil))
	env.Threshold = 4
	_, err = env.EncryptAndPublish(ctx, nil, Target{})
	require.EqualError(t, err, "failed to encrypt: threshold 4 out of range [1, 3]")
}

func TestFetchAndDecrypt_Failures(t *testing.T) {
	net := makeNetwork(t)
	env := net.env(account.Generate(nil))
	ctx := context.Background()

	pub, err := env.EncryptAndPublish(ctx, []byte("api-key"), Target{Name: "my-key"})
	require.NoError(t, err)

	_, err = env.FetchAndDecrypt(ctx, Lookup{})
	require.EqualError(t, err, "missing blob ID")

	_, err = env.FetchAndDecrypt(ctx, Lookup{Record: ledger.ObjectID{1}})
	require.True(t, xerrors.Is(err, ledger.ErrNotFound))

	_, err = env.FetchAndDecrypt(ctx, Lookup{BlobID: blob.ComputeID([]byte("unknown"))})
	require.True(t, xerrors.Is(err, blob.ErrNotFound))

	// The identifier recomputed from the parts must match the header.
	_, err = env.FetchAndDecrypt(ctx, Lookup{
		BlobID: pub.BlobID,
		Prefix: pub.Prefix,
		Nonce:  []byte{1, 2, 3, 4, 5},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "identifier mismatch")

	// Content that is not an encrypted object.
	id, err := env.Blobs.Put(ctx, []byte("not an object"), 1)
	require.NoError(t, err)

	_, err = env.FetchAndDecrypt(ctx, Lookup{BlobID: id})
	require.True(t, envelope.IsInvalidFormat(err))

	_, err = env.FetchAndDecrypt(ctx, Lookup{BlobID: pub.BlobID, Binding: ident.Binding(5)})
	require.EqualError(t, err, "unknown binding unknown")

	env.SessionTTL = 0
	_, err = env.FetchAndDecrypt(ctx, Lookup{BlobID: pub.BlobID})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open session")
}

func TestSubmit_Log(t *testing.T) {
	net := makeNetwork(t)
	env := net.env(account.Generate(nil))

	old := sealbox.Logger
	defer func() { sealbox.Logger = old }()

	logger, check := fake.CheckLog("transaction executed")
	sealbox.Logger = logger.Level(zerolog.DebugLevel)

	_, _, err := env.CreateAllowlist(context.Background(), "team")
	require.NoError(t, err)

	check(t)
}

func TestResolveCapabilities(t *testing.T) {
	net := makeNetwork(t)
	env := net.env(account.Generate(nil))
	ctx := context.Background()

	caps, err := env.ResolveCapabilities(ctx)
	require.NoError(t, err)
	require.Empty(t, caps)

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, _, err := env.CreateAllowlist(ctx, name)
		require.NoError(t, err)
	}

	// Capabilities of other accounts are ignored.
	other := net.env(account.Generate(nil))
	_, _, err = other.CreateAllowlist(ctx, "delta")
	require.NoError(t, err)

	caps, err = env.ResolveCapabilities(ctx)
	require.NoError(t, err)
	require.Len(t, caps, 3)

	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Allowlist.Name
		require.Equal(t, c.Allowlist.ID, c.Cap.AllowlistID)
		require.Equal(t, env.Account.Address(), c.Cap.Owner)
	}

	require.Equal(t, []string{"alpha", "bravo", "charlie"}, names)
}

func TestAllowlist_Failures(t *testing.T) {
	net := makeNetwork(t)
	owner := net.env(account.Generate(nil))
	other := net.env(account.Generate(nil))
	ctx := context.Background()

	_, capID, err := owner.CreateAllowlist(ctx, "team")
	require.NoError(t, err)

	err = other.AddMember(ctx, capID, other.Account.Address())
	require.True(t, xerrors.Is(err, ledger.ErrAccessDenied))

	err = owner.RemoveMember(ctx, capID, other.Account.Address())
	require.NoError(t, err)

	_, _, err = owner.CreateAllowlist(ctx, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to submit 'create_allowlist'")
}

// -----------------------------------------------------------------------------
// Utility functions

type network struct {
	t       *testing.T
	ledger  *local.Ledger
	servers []keyserver.KeyServer
	blobs   blob.Store
}

func makeNetwork(t *testing.T) network {
	db, err := kv.New(filepath.Join(t.TempDir(), "node.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	l := local.NewLedger(db, local.DefaultPackageID())

	servers := make([]keyserver.KeyServer, 3)
	for i := range servers {
		id := "ks" + string(rune('0'+i))
		servers[i] = keyserver.NewServer(id, keyserver.GenerateKey(nil), l.PackageID(), l)
	}

	return network{
		t:       t,
		ledger:  l,
		servers: servers,
		blobs:   kvblob.NewStore(db),
	}
}

func (n network) env(acc account.Account) Env {
	name := strings.ReplaceAll(acc.Address().String(), "0x", "")

	res, err := results.Open(filepath.Join(n.t.TempDir(), name+".yaml"))
	require.NoError(n.t, err)

	return Env{
		Account:    acc,
		Ledger:     n.ledger,
		Seal:       threshold.NewClient(n.servers),
		Blobs:      n.blobs,
		Results:    res,
		PackageID:  n.ledger.PackageID(),
		Threshold:  2,
		Epochs:     1,
		SessionTTL: time.Minute,
		Out:        new(bytes.Buffer),
	}
}
