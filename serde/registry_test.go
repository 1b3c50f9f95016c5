package serde

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	r.Register(FormatJSON, fakeEngine{})
	r.Register(FormatJSON, fakeEngine{})
	r.Register(Format("A"), fakeEngine{})

	require.Equal(t, []Format{"A", FormatJSON}, r.Formats())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(FormatJSON, fakeEngine{})

	require.Equal(t, fakeEngine{}, r.Get(FormatJSON))

	engine := r.Get(Format("unknown"))
	require.NotNil(t, engine)

	_, err := engine.Encode(NewContext(nil), nil)
	require.EqualError(t, err, "format 'unknown' is not registered")

	_, err = engine.Decode(NewContext(nil), nil)
	require.EqualError(t, err, "format 'unknown' is not registered")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeEngine struct {
	FormatEngine
}
