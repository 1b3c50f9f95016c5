package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/internal/testing/fake"
)

func TestFileLoader_LoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "account.key")

	generator := fakeGenerator{
		calls: fake.NewCall(),
	}

	loader := NewFileLoader(path).(fileLoader)

	key, err := loader.LoadOrCreate(generator)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, key)
	require.Equal(t, 1, generator.calls.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "010203\n", string(data))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0400), stat.Mode().Perm())

	key, err = loader.LoadOrCreate(generator)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, key)
	require.Equal(t, 1, generator.calls.Len())
}

func TestFileLoader_LoadOrCreateFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.key")

	loader := NewFileLoader(path).(fileLoader)

	_, err := loader.LoadOrCreate(fakeGenerator{err: fake.GetError()})
	require.EqualError(t, err, fake.Err("generator failed"))

	loader.mkdirFn = func(string, os.FileMode) error {
		return fake.GetError()
	}
	_, err = loader.LoadOrCreate(fakeGenerator{})
	require.EqualError(t, err, fake.Err("failed to create folder"))

	loader.mkdirFn = os.MkdirAll
	loader.writeFn = func(string, []byte, os.FileMode) error {
		return fake.GetError()
	}
	_, err = loader.LoadOrCreate(fakeGenerator{})
	require.EqualError(t, err, fake.Err("failed to write file"))

	loader.statFn = func(string) (os.FileInfo, error) {
		return nil, fake.GetError()
	}
	_, err = loader.LoadOrCreate(fakeGenerator{})
	require.EqualError(t, err, fake.Err("failed to stat '"+path+"'"))

	loader.statFn = func(string) (os.FileInfo, error) {
		return nil, nil
	}
	loader.readFn = func(string) ([]byte, error) {
		return nil, fake.GetError()
	}
	_, err = loader.LoadOrCreate(fakeGenerator{})
	require.EqualError(t, err, fake.Err("failed to load file: failed to read file"))
}

func TestFileLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.key")

	loader := NewFileLoader(path)

	_, err := loader.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read file: ")

	require.NoError(t, os.WriteFile(path, []byte("  abcd \n"), 0600))

	key, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, []byte{0xab, 0xcd}, key)

	require.NoError(t, os.WriteFile(path, []byte("xyz"), 0600))

	_, err = loader.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed key file '"+path+"': ")
}

func TestGeneratorFunc_Generate(t *testing.T) {
	gen := GeneratorFunc(func() ([]byte, error) {
		return []byte{42}, nil
	})

	data, err := gen.Generate()
	require.NoError(t, err)
	require.Equal(t, []byte{42}, data)
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeGenerator struct {
	calls *fake.Call
	err   error
}

func (g fakeGenerator) Generate() ([]byte, error) {
	if g.calls != nil {
		g.calls.Add("generate")
	}

	return []byte{1, 2, 3}, g.err
}
