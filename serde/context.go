package serde

// ContextEngine is the interface of the format specific part of a context.
type ContextEngine interface {
	// GetFormat returns the format of the context.
	GetFormat() Format

	// Marshal returns the bytes of the value in the format of the context.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal populates the value with the data in the format of the
	// context.
	Unmarshal(data []byte, v interface{}) error
}

// Context is passed to the messages when they are serialized or deserialized
// so that they can find the engine of their format.
type Context struct {
	ContextEngine
}

// NewContext returns a context for the engine.
func NewContext(engine ContextEngine) Context {
	return Context{ContextEngine: engine}
}
