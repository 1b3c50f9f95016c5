package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/internal/testing/fake"
	"go.dedis.ch/sealbox/results"
)

func TestChain_Precedence(t *testing.T) {
	file := makeResults(t, results.Entry{Name: "first", Nonce: "0x01", BlobID: "blob1"})
	flags := cli.FlagSet{"nonce": "0xff"}

	t.Setenv(EnvName("nonce"), "0xee")
	t.Setenv(EnvName("blob"), "blob-env")

	out := new(strings.Builder)

	chain := NewChain(
		FlagResolver{Flags: flags},
		EnvResolver{},
		ResultsResolver{File: file},
		NewPromptResolver(strings.NewReader("answer\n"), out),
	)

	value, err := chain.Resolve("nonce")
	require.NoError(t, err)
	require.Equal(t, "0xff", value)

	value, err = chain.Resolve("blob")
	require.NoError(t, err)
	require.Equal(t, "blob-env", value)

	value, err = chain.Resolve("name")
	require.NoError(t, err)
	require.Equal(t, "first", value)

	value, err = chain.Require("prefix")
	require.NoError(t, err)
	require.Equal(t, "answer", value)
	require.Equal(t, "prefix: ", out.String())
}

func TestChain_Require(t *testing.T) {
	chain := NewChain(EnvResolver{}, nil, ResultsResolver{})

	_, err := chain.Require("unknown-key")
	require.EqualError(t, err, "missing value for 'unknown-key' (tried env, results)")

	chain = NewChain(NewPromptResolver(fake.BadReader{}, new(strings.Builder)))

	_, err = chain.Require("key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "prompt: failed to read answer")
}

func TestResultsResolver(t *testing.T) {
	file := makeResults(t,
		results.Entry{Name: "a", Nonce: "0x01"},
		results.Entry{Name: "b", Nonce: "0x02"},
	)

	value, err := ResultsResolver{File: file}.Resolve("nonce")
	require.NoError(t, err)
	require.Equal(t, "0x02", value)

	value, err = ResultsResolver{File: file, Entry: "a"}.Resolve("nonce")
	require.NoError(t, err)
	require.Equal(t, "0x01", value)

	value, err = ResultsResolver{File: file, Entry: "c"}.Resolve("nonce")
	require.NoError(t, err)
	require.Empty(t, value)
}

func TestPromptResolver_EOF(t *testing.T) {
	r := NewPromptResolver(strings.NewReader("last"), new(strings.Builder))

	value, err := r.Resolve("key")
	require.NoError(t, err)
	require.Equal(t, "last", value)

	value, err = r.Resolve("key")
	require.NoError(t, err)
	require.Empty(t, value)
}

func TestEnvName(t *testing.T) {
	require.Equal(t, "SEALBOX_BLOB_ID", EnvName("blob-id"))
	require.Equal(t, "SEALBOX_NONCE", EnvName("nonce"))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeResults(t *testing.T, entries ...results.Entry) *results.File {
	file, err := results.Open(filepath.Join(t.TempDir(), "results.yaml"))
	require.NoError(t, err)

	for _, e := range entries {
		e.CreatedAt = time.Now()
		require.NoError(t, file.Add(e))
	}

	return file
}
