// Package loader defines how the keys of the accounts and the key servers are
// read from a persistent storage, or generated and stored the first time.
package loader

// Generator is the interface to implement to generate a key.
type Generator interface {
	Generate() ([]byte, error)
}

// GeneratorFunc is a function that implements the generator interface.
type GeneratorFunc func() ([]byte, error)

// Generate implements loader.Generator.
func (fn GeneratorFunc) Generate() ([]byte, error) {
	return fn()
}

// Loader is the interface of a key storage.
type Loader interface {
	// LoadOrCreate returns the stored key, or generates and stores a new one
	// if there is none.
	LoadOrCreate(Generator) ([]byte, error)

	// Load returns the stored key, or an error if there is none.
	Load() ([]byte, error)
}
