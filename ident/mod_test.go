package ident

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestDerive(t *testing.T) {
	prefix := bytes.Repeat([]byte{0xaa}, 32)
	nonce := []byte{1, 2, 3, 4, 5}

	id := Derive(prefix, nonce)
	require.Len(t, id, 37)
	require.Equal(t, prefix, []byte(id[:32]))
	require.Equal(t, nonce, []byte(id[32:]))
	require.Equal(t, strings.Repeat("aa", 32)+"0102030405", id.String())
}

func TestDerive_Lengths(t *testing.T) {
	for p := 0; p < 40; p += 7 {
		for n := 0; n < 12; n += 3 {
			prefix := make([]byte, p)
			nonce := make([]byte, n)
			rand.Read(prefix)
			rand.Read(nonce)

			id := Derive(prefix, nonce)
			require.Len(t, id, p+n)
			require.Equal(t, append(append([]byte{}, prefix...), nonce...), []byte(id))
		}
	}

	require.Empty(t, Derive(nil, nil))
}

func TestDerive_Deterministic(t *testing.T) {
	prefix := []byte("principal")
	nonce := []byte{9, 8, 7}

	require.Equal(t, Derive(prefix, nonce), Derive(prefix, nonce))
}

func TestDerive_NoAliasing(t *testing.T) {
	buffer := make([]byte, 4, 16)
	copy(buffer, []byte{1, 2, 3, 4})

	id := Derive(buffer, []byte{5})
	id[0] = 0xff

	require.Equal(t, byte(1), buffer[0])
	require.Equal(t, []byte{1, 2, 3, 4}, buffer[:4])

	other := Derive(buffer, []byte{6})
	require.Equal(t, Identifier{1, 2, 3, 4, 6}, other)
}

func TestDerive_DistinctPrefixes(t *testing.T) {
	nonce := []byte{1, 2, 3, 4, 5}

	p1 := bytes.Repeat([]byte{0x01}, 32)
	p2 := bytes.Repeat([]byte{0x02}, 32)

	require.NotEqual(t, Derive(p1, nonce), Derive(p2, nonce))
}

func TestDerive_DistinctNonces(t *testing.T) {
	prefix := bytes.Repeat([]byte{0xaa}, 32)

	id1 := Derive(prefix, []byte{1, 2, 3, 4, 5})
	id2 := Derive(prefix, []byte{1, 2, 3, 4, 6})

	require.NotEqual(t, id1, id2)
	require.Len(t, id2, len(id1))
}

func TestDerive_Concurrent(t *testing.T) {
	prefix := bytes.Repeat([]byte{0xbb}, 32)
	expected := Derive(prefix, []byte{1})

	var wg sync.WaitGroup
	wg.Add(20)

	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			require.Equal(t, expected, Derive(prefix, []byte{1}))
		}()
	}

	wg.Wait()
}

func TestDeriveHex(t *testing.T) {
	prefix := "0x" + strings.Repeat("AA", 32)

	id, err := DeriveHex(prefix, "0102030405")
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("aa", 32)+"0102030405", id.String())

	id, err = DeriveHex(strings.Repeat("aa", 32), "0x0102030405")
	require.NoError(t, err)
	require.Len(t, id, 37)

	_, err = DeriveHex("0xZZ", "0102030405")
	require.True(t, IsMalformedHex(err))
	require.True(t, xerrors.Is(err, ErrMalformedHex))
	require.EqualError(t, err,
		"prefix: malformed hex input '0xZZ': encoding/hex: invalid byte: U+005A 'Z'")

	// The prefix is checked before the nonce.
	_, err = DeriveHex("0xZZ", "0xYY")
	require.Contains(t, err.Error(), "prefix: ")

	_, err = DeriveHex("aa", "abc")
	require.True(t, IsMalformedHex(err))
	require.EqualError(t, err,
		"nonce: malformed hex input 'abc': encoding/hex: odd length hex string")
}

func TestDecodeHex(t *testing.T) {
	buf, err := DecodeHex("0xdeadBEEF")
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, buf)

	buf, err = DecodeHex("0X00")
	require.NoError(t, err)
	require.Equal(t, []byte{0}, buf)

	buf, err = DecodeHex("")
	require.NoError(t, err)
	require.Empty(t, buf)

	_, err = DecodeHex("0x0x00")
	require.True(t, IsMalformedHex(err))

	_, err = DecodeHex("0xZZ")
	require.True(t, IsMalformedHex(err))

	var malformed MalformedHexError
	require.True(t, xerrors.As(err, &malformed))
	require.Equal(t, "0xZZ", malformed.Input)
	require.NotNil(t, xerrors.Unwrap(malformed))

	require.False(t, IsMalformedHex(fake.GetError()))
}

func TestEncodeHex(t *testing.T) {
	require.Equal(t, "0x0102", EncodeHex([]byte{1, 2}))

	buf, err := DecodeHex(EncodeHex([]byte{0xab, 0xcd}))
	require.NoError(t, err)
	require.Equal(t, []byte{0xab, 0xcd}, buf)
}

func TestParseIdentifier(t *testing.T) {
	id, err := ParseIdentifier("0xaabb01")
	require.NoError(t, err)
	require.Equal(t, Identifier{0xaa, 0xbb, 0x01}, id)
	require.True(t, id.Equal(Identifier{0xaa, 0xbb, 0x01}))
	require.False(t, id.Equal(Identifier{0xaa}))

	_, err = ParseIdentifier("0xz")
	require.True(t, IsMalformedHex(err))
}

func TestIdentifier_Split(t *testing.T) {
	id := Identifier{1, 2, 3, 4, 5}

	prefix, nonce, err := id.Split(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, prefix)
	require.Equal(t, []byte{4, 5}, nonce)

	_, _, err = id.Split(5)
	require.EqualError(t, err,
		"identifier of length 5 cannot hold a prefix of length 5 and a nonce")

	_, _, err = id.Split(-1)
	require.Error(t, err)
}

func TestNewNonce(t *testing.T) {
	nonce, err := NewNonce(&fake.CounterReader{}, NonceSize)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, nonce)

	nonce, err = NewNonce(rand.Reader, 12)
	require.NoError(t, err)
	require.Len(t, nonce, 12)

	_, err = NewNonce(rand.Reader, 0)
	require.EqualError(t, err, "invalid nonce size: 0")

	_, err = NewNonce(fake.BadReader{}, NonceSize)
	require.EqualError(t, err, fake.Err("failed to read random nonce"))
}

func TestMalformedHexError_Error(t *testing.T) {
	err := NewMalformedHexError("xx", nil)
	require.EqualError(t, err, "malformed hex input 'xx'")

	err = NewMalformedHexError("xx", hex.ErrLength)
	require.EqualError(t, err, "malformed hex input 'xx': encoding/hex: odd length hex string")
	require.True(t, err.Is(ErrMalformedHex))
	require.False(t, err.Is(fake.GetError()))
}
