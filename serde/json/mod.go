// Package json implements the JSON context engine. The encrypted objects and
// the ledger objects are stored in this format.
package json

import (
	"encoding/json"

	"go.dedis.ch/sealbox/serde"
)

// NewContext returns a JSON context.
func NewContext() serde.Context {
	return serde.NewContext(engine{})
}

// engine marshals the values with the standard JSON encoding.
//
// - implements serde.ContextEngine
type engine struct{}

// GetFormat implements serde.ContextEngine.
func (engine) GetFormat() serde.Format {
	return serde.FormatJSON
}

// Marshal implements serde.ContextEngine.
func (engine) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements serde.ContextEngine.
func (engine) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
