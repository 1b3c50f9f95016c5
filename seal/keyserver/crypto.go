package keyserver

import (
	"crypto/cipher"
	"encoding/binary"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/ident"
	"golang.org/x/xerrors"
)

// DeriveMask returns the mask of the share at the index, derived from the
// shared point and the identifier.
func DeriveMask(shared kyber.Point, id ident.Identifier, index int) []byte {
	return derive("mask", shared, id, index)
}

// DeriveTag returns the tag that binds the shared point of a share to the
// identifier and the index.
func DeriveTag(shared kyber.Point, id ident.Identifier, index int) []byte {
	return derive("tag", shared, id, index)
}

func derive(label string, shared kyber.Point, id ident.Identifier, index int) []byte {
	point, err := shared.MarshalBinary()
	if err != nil {
		panic("failed to marshal point: " + err.Error())
	}

	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, uint64(index))

	return crypto.Digest(crypto.NewSha256Factory(),
		[]byte(label), lenPrefixed(point), lenPrefixed(id), idx)
}

// XOR returns a xor b. Both slices must have the same length.
func XOR(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}

	return out
}

// ElGamalEncrypt encrypts the point to the public key. It returns the
// ephemeral point and the ciphertext.
func ElGamalEncrypt(pubkey, msg kyber.Point, stream cipher.Stream) (kyber.Point, kyber.Point) {
	suite := account.Suite()

	k := suite.Scalar().Pick(stream)
	R := suite.Point().Mul(k, nil)
	C := suite.Point().Add(msg, suite.Point().Mul(k, pubkey))

	return R, C
}

// ElGamalDecrypt returns the point encrypted with ElGamalEncrypt.
func ElGamalDecrypt(secret kyber.Scalar, R, C kyber.Point) kyber.Point {
	suite := account.Suite()

	return suite.Point().Sub(C, suite.Point().Mul(secret, R))
}

// OpenResponse decrypts the response of a key server with the session secret
// key.
func OpenResponse(secret kyber.Scalar, resp FetchResponse) (kyber.Point, error) {
	R, err := account.UnmarshalPublicKey(resp.R)
	if err != nil {
		return nil, xerrors.Errorf("invalid R: %v", err)
	}

	C, err := account.UnmarshalPublicKey(resp.C)
	if err != nil {
		return nil, xerrors.Errorf("invalid C: %v", err)
	}

	return ElGamalDecrypt(secret, R, C), nil
}
