package keyserver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ident"
)

func TestDerive(t *testing.T) {
	suite := account.Suite()
	shared := suite.Point().Pick(suite.RandomStream())
	id := ident.Identifier{1, 2, 3}

	mask := DeriveMask(shared, id, 1)
	tag := DeriveTag(shared, id, 1)

	require.Len(t, mask, 32)
	require.Len(t, tag, 32)
	require.NotEqual(t, mask, tag)

	require.Equal(t, tag, DeriveTag(shared, id, 1))
	require.NotEqual(t, tag, DeriveTag(shared, id, 2))
	require.NotEqual(t, tag, DeriveTag(shared, ident.Identifier{1, 2}, 1))
	require.NotEqual(t, tag, DeriveTag(suite.Point().Base(), id, 1))
}

func TestXOR(t *testing.T) {
	a := []byte{0x0f, 0xf0, 0xaa}
	b := []byte{0xff, 0xff, 0x0a}

	require.Equal(t, []byte{0xf0, 0x0f, 0xa0}, XOR(a, b))
	require.Equal(t, a, XOR(XOR(a, b), b))
}

func TestElGamal(t *testing.T) {
	suite := account.Suite()
	key := GenerateKey(nil)
	msg := suite.Point().Pick(suite.RandomStream())

	R, C := ElGamalEncrypt(key.Public, msg, suite.RandomStream())
	require.True(t, ElGamalDecrypt(key.Secret, R, C).Equal(msg))

	other := GenerateKey(nil)
	require.False(t, ElGamalDecrypt(other.Secret, R, C).Equal(msg))
}

func TestOpenResponse(t *testing.T) {
	suite := account.Suite()
	key := GenerateKey(nil)
	msg := suite.Point().Pick(suite.RandomStream())

	R, C := ElGamalEncrypt(key.Public, msg, suite.RandomStream())

	resp := FetchResponse{}
	resp.R, _ = R.MarshalBinary()
	resp.C, _ = C.MarshalBinary()

	opened, err := OpenResponse(key.Secret, resp)
	require.NoError(t, err)
	require.True(t, opened.Equal(msg))

	_, err = OpenResponse(key.Secret, FetchResponse{R: []byte{1}, C: resp.C})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid R")

	_, err = OpenResponse(key.Secret, FetchResponse{R: resp.R})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid C")
}
