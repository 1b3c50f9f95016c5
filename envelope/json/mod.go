// Package json defines the JSON format of the encrypted objects.
package json

import (
	"go.dedis.ch/sealbox/envelope"
	"go.dedis.ch/sealbox/serde"
	"golang.org/x/xerrors"
)

func init() {
	envelope.RegisterObjectFormat(serde.FormatJSON, objFormat{})
}

// ShareJSON is the JSON message of a share.
type ShareJSON struct {
	ServerID string
	Index    int
	Commit   []byte
	Cipher   []byte
	Tag      []byte
}

// ObjectJSON is the JSON message of an encrypted object.
type ObjectJSON struct {
	Magic      string
	Version    int
	PackageID  []byte
	Identifier []byte
	Threshold  int
	Shares     []ShareJSON
	Nonce      []byte
	Ciphertext []byte
}

// ObjectFormat is the engine to encode and decode encrypted objects in JSON
// format.
//
// - implements serde.FormatEngine
type objFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the object
// if appropriate, otherwise an error.
func (objFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	obj, ok := msg.(envelope.Object)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	shares := make([]ShareJSON, len(obj.GetShares()))
	for i, share := range obj.GetShares() {
		shares[i] = ShareJSON(share)
	}

	m := ObjectJSON{
		Magic:      envelope.Magic,
		Version:    obj.GetVersion(),
		PackageID:  obj.GetPackageID(),
		Identifier: obj.GetIdentifier(),
		Threshold:  obj.GetThreshold(),
		Shares:     shares,
		Nonce:      obj.GetNonce(),
		Ciphertext: obj.GetCiphertext(),
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the encrypted object from
// the JSON data if appropriate, otherwise it returns an error.
func (objFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := ObjectJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("couldn't unmarshal object: %v", err)
	}

	if m.Magic != envelope.Magic {
		return nil, xerrors.Errorf("unexpected magic '%s'", m.Magic)
	}

	shares := make([]envelope.Share, len(m.Shares))
	for i, share := range m.Shares {
		shares[i] = envelope.Share(share)
	}

	obj := envelope.NewObject(m.Identifier,
		envelope.WithVersion(m.Version),
		envelope.WithPackageID(m.PackageID),
		envelope.WithShares(m.Threshold, shares...),
		envelope.WithCiphertext(m.Nonce, m.Ciphertext),
	)

	return obj, nil
}
