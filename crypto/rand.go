package crypto

import (
	"crypto/rand"
	"io"

	"golang.org/x/xerrors"
)

// CryptographicRandomGenerator reads from the secure random source of the
// operating system.
//
// - implements crypto.RandGenerator
type CryptographicRandomGenerator struct{}

// Read implements crypto.RandGenerator.
func (CryptographicRandomGenerator) Read(buffer []byte) (int, error) {
	return rand.Read(buffer)
}

// RandomBytes returns n bytes read from the generator. It fails if the
// generator cannot fill them all.
func RandomBytes(g RandGenerator, n int) ([]byte, error) {
	buffer := make([]byte, n)

	_, err := io.ReadFull(g, buffer)
	if err != nil {
		return nil, xerrors.Errorf("short read: %v", err)
	}

	return buffer, nil
}
