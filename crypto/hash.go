package crypto

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashAlgorithm is the identifier of a hash function supported by the factory.
type HashAlgorithm int

const (
	// Sha256 is the SHA-256 hash function.
	Sha256 HashAlgorithm = iota
	// Sha3_224 is the SHA3-224 hash function.
	Sha3_224
	// Blake2b256 is the BLAKE2b hash function with a 256-bit digest. It is used
	// to derive account addresses.
	Blake2b256
)

// hashFactory is a hash factory that is using SHA or BLAKE2 algorithms.
//
// - implements crypto.HashFactory
type hashFactory struct {
	hashType HashAlgorithm
}

// NewSha256Factory returns a new instance of the factory.
func NewSha256Factory() HashFactory {
	return hashFactory{Sha256}
}

// NewHashFactory returns a new instance of the factory.
func NewHashFactory(a HashAlgorithm) HashFactory {
	return hashFactory{a}
}

// New implements crypto.HashFactory. It returns a new Hash instance.
func (f hashFactory) New() hash.Hash {
	switch f.hashType {
	case Sha256:
		return sha256.New()
	case Sha3_224:
		return sha3.New224()
	case Blake2b256:
		// The error is only returned for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	default:
		panic("unknown hash type")
	}
}

// Digest writes the chunks in order into a new hash of the factory and returns
// the sum.
func Digest(f HashFactory, chunks ...[]byte) []byte {
	h := f.New()

	for _, chunk := range chunks {
		h.Write(chunk)
	}

	return h.Sum(nil)
}
