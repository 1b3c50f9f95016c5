package account

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/crypto/loader"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/internal/testing/fake"
	"golang.org/x/crypto/blake2b"
)

func TestAddressOf(t *testing.T) {
	acc := Generate(nil)

	pubkey, err := acc.PublicKey().MarshalBinary()
	require.NoError(t, err)

	expected := blake2b.Sum256(append([]byte{0x00}, pubkey...))

	addr := AddressOf(acc.PublicKey())
	require.Equal(t, expected[:], addr.Bytes())
	require.Equal(t, addr, acc.Address())
	require.False(t, addr.IsZero())

	other := Generate(nil)
	require.NotEqual(t, addr, other.Address())
}

func TestAddress_String(t *testing.T) {
	var addr Address
	addr[0] = 0xab
	addr[31] = 0xcd

	str := addr.String()
	require.Len(t, str, 66)
	require.True(t, strings.HasPrefix(str, "0xab"))
	require.True(t, strings.HasSuffix(str, "cd"))
}

func TestParseAddress(t *testing.T) {
	addr := Generate(nil).Address()

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	parsed, err = ParseAddress(strings.TrimPrefix(addr.String(), "0x"))
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	_, err = ParseAddress("0xZZ")
	require.True(t, ident.IsMalformedHex(err))

	_, err = ParseAddress("0xabcd")
	require.EqualError(t, err, "invalid address length 2")
}

func TestAddress_Text(t *testing.T) {
	addr := Generate(nil).Address()

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	require.Equal(t, addr, decoded)

	require.Error(t, decoded.UnmarshalText([]byte("0x01")))
}

func TestAccount_SignVerify(t *testing.T) {
	acc := Generate(nil)

	sig, err := acc.Sign([]byte("message"))
	require.NoError(t, err)

	require.NoError(t, Verify(acc.PublicKey(), []byte("message"), sig))

	err = Verify(acc.PublicKey(), []byte("other"), sig)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid signature: ")

	err = Verify(Generate(nil).PublicKey(), []byte("message"), sig)
	require.Error(t, err)
}

func TestAccount_Marshal(t *testing.T) {
	acc := Generate(nil)

	data, err := acc.MarshalBinary()
	require.NoError(t, err)

	acc2, err := FromBytes(data)
	require.NoError(t, err)
	require.Equal(t, acc.Address(), acc2.Address())
	require.True(t, acc.SecretKey().Equal(acc2.SecretKey()))

	_, err = FromBytes([]byte{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal key: ")
}

func TestUnmarshalPublicKey(t *testing.T) {
	acc := Generate(nil)

	pubkey, err := UnmarshalPublicKey(acc.PublicKeyBytes())
	require.NoError(t, err)
	require.True(t, pubkey.Equal(acc.PublicKey()))

	_, err = UnmarshalPublicKey([]byte{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal public key: ")
}

func TestLoadOrCreate(t *testing.T) {
	l := loader.NewFileLoader(filepath.Join(t.TempDir(), "account.key"))

	acc, err := LoadOrCreate(l)
	require.NoError(t, err)

	acc2, err := LoadOrCreate(l)
	require.NoError(t, err)
	require.Equal(t, acc.Address(), acc2.Address())

	acc3, err := Load(l)
	require.NoError(t, err)
	require.Equal(t, acc.Address(), acc3.Address())

	_, err = LoadOrCreate(badLoader{})
	require.EqualError(t, err, fake.Err("failed to load key"))

	_, err = Load(badLoader{})
	require.EqualError(t, err, fake.Err("failed to load key"))
}

// -----------------------------------------------------------------------------
// Utility functions

type badLoader struct{}

func (badLoader) LoadOrCreate(loader.Generator) ([]byte, error) {
	return nil, fake.GetError()
}

func (badLoader) Load() ([]byte, error) {
	return nil, fake.GetError()
}
