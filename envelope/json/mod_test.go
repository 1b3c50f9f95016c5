package json

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/envelope"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/internal/testing/fake"
	sjson "go.dedis.ch/sealbox/serde/json"
)

func TestObjectFormat_Encode(t *testing.T) {
	format := objFormat{}
	ctx := sjson.NewContext()

	data, err := format.Encode(ctx, makeObject(t))
	require.NoError(t, err)
	require.Contains(t, string(data), `"Magic":"sealbox"`)
	require.Contains(t, string(data), `"Threshold":1`)

	_, err = format.Encode(ctx, fake.Message{})
	require.EqualError(t, err, "unsupported message of type 'fake.Message'")

	_, err = format.Encode(fake.NewBadContext(), makeObject(t))
	require.EqualError(t, err, fake.Err("couldn't marshal"))
}

func TestObjectFormat_Decode(t *testing.T) {
	format := objFormat{}
	ctx := sjson.NewContext()

	obj := makeObject(t)

	data, err := format.Encode(ctx, obj)
	require.NoError(t, err)

	msg, err := format.Decode(ctx, data)
	require.NoError(t, err)
	require.Equal(t, obj, msg)

	_, err = format.Decode(fake.NewBadContext(), data)
	require.EqualError(t, err, fake.Err("couldn't unmarshal object"))

	_, err = format.Decode(ctx, []byte(`{"Magic":"other"}`))
	require.EqualError(t, err, "unexpected magic 'other'")
}

func TestEncodeDecode(t *testing.T) {
	obj := makeObject(t)

	data, err := envelope.Encode(obj)
	require.NoError(t, err)

	decoded, err := envelope.Decode(data)
	require.NoError(t, err)
	require.Equal(t, obj, decoded)

	_, err = envelope.Encode(envelope.NewObject(nil))
	require.EqualError(t, err, "invalid object: empty identifier")
}

func TestExtractIdentifier(t *testing.T) {
	id, err := ident.DeriveHex("0x"+repeat("ab", 32), "0102030405")
	require.NoError(t, err)

	data, err := envelope.Encode(envelope.NewObject(id,
		envelope.WithShares(1, envelope.Share{ServerID: "ks0"})))
	require.NoError(t, err)

	extracted, err := envelope.ExtractIdentifier(data)
	require.NoError(t, err)
	require.Equal(t, id, extracted)
	require.Len(t, extracted, 37)
}

func TestExtractIdentifier_InvalidFormat(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"Magic":"other","Version":1}`),
		[]byte(`{"Magic":"sealbox","Version":2,"Identifier":"AQI=","Threshold":1,"Shares":[{}]}`),
		[]byte(`{"Magic":"sealbox","Version":1,"Threshold":1,"Shares":[{}]}`),
		[]byte(`{"Magic":"sealbox","Version":1,"Identifier":"AQI=","Threshold":2,"Shares":[{}]}`),
		[]byte(`{"Magic":"sealbox","Version":1,"Identifier":"AQI=","Threshold":0,"Shares":[{}]}`),
	}

	for _, input := range inputs {
		_, err := envelope.ExtractIdentifier(input)
		require.Error(t, err, string(input))
		require.True(t, envelope.IsInvalidFormat(err), string(input))
	}

	_, err := envelope.ExtractIdentifier([]byte(`{"Magic":"sealbox","Version":1,"Identifier":"AQI=","Threshold":1,"Shares":[{}]}`))
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeObject(t *testing.T) envelope.Object {
	id := ident.Derive([]byte{0xaa, 0xbb}, []byte{1, 2, 3, 4, 5})

	return envelope.NewObject(id,
		envelope.WithPackageID([]byte{0xcc}),
		envelope.WithShares(1, envelope.Share{
			ServerID: "ks0",
			Index:    0,
			Commit:   []byte{1},
			Cipher:   []byte{2},
			Tag:      []byte{3},
		}),
		envelope.WithCiphertext([]byte{4}, []byte{5}),
	)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}

	return out
}
