// Package crypto defines the cryptographic helpers shared by the packages of
// the module: hash factories and the random generator.
package crypto

import (
	"hash"
	"io"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// RandGenerator is the interface of a random source.
type RandGenerator interface {
	io.Reader
}
