package serde

import (
	"sort"
	"sync"

	"golang.org/x/xerrors"
)

// Registry maps the formats of a message to their engines. A format without
// engine resolves to one that always fails.
type Registry struct {
	sync.RWMutex

	engines map[Format]FormatEngine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[Format]FormatEngine),
	}
}

// Register sets the engine of the format. A previous engine is replaced.
func (r *Registry) Register(format Format, engine FormatEngine) {
	r.Lock()
	r.engines[format] = engine
	r.Unlock()
}

// Get returns the engine of the format.
func (r *Registry) Get(format Format) FormatEngine {
	r.RLock()
	defer r.RUnlock()

	engine := r.engines[format]
	if engine == nil {
		return missingEngine{format: format}
	}

	return engine
}

// Formats returns the sorted list of the registered formats.
func (r *Registry) Formats() []Format {
	r.RLock()
	defer r.RUnlock()

	formats := make([]Format, 0, len(r.engines))
	for f := range r.engines {
		formats = append(formats, f)
	}

	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })

	return formats
}

// missingEngine is returned for a format without engine.
//
// - implements serde.FormatEngine
type missingEngine struct {
	format Format
}

// Encode implements serde.FormatEngine. It always returns an error.
func (e missingEngine) Encode(Context, Message) ([]byte, error) {
	return nil, xerrors.Errorf("format '%s' is not registered", e.format)
}

// Decode implements serde.FormatEngine. It always returns an error.
func (e missingEngine) Decode(Context, []byte) (Message, error) {
	return nil, xerrors.Errorf("format '%s' is not registered", e.format)
}
