// Package envelope defines the framing of an encrypted object. The header of
// the object carries the identifier the data was sealed under, so that anyone
// holding the bytes can learn which identifier to ask the key servers for.
package envelope

import (
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/serde"
	sjson "go.dedis.ch/sealbox/serde/json"
	"golang.org/x/xerrors"
)

// Magic is the marker written in every encrypted object.
const Magic = "sealbox"

// Version is the current version of the framing.
const Version = 1

var objFormats = serde.NewRegistry()

// RegisterObjectFormat registers the engine for the provided format.
func RegisterObjectFormat(c serde.Format, f serde.FormatEngine) {
	objFormats.Register(c, f)
}

// Share is the part of the header addressed to a single key server.
type Share struct {
	// ServerID is the identifier of the key server that can open the share.
	ServerID string
	// Index is the index of the share in the secret sharing, starting at 0.
	Index int
	// Commit is the marshaled ephemeral point of the share.
	Commit []byte
	// Cipher is the masked share.
	Cipher []byte
	// Tag binds the ephemeral point to the identifier.
	Tag []byte
}

// Object is an encrypted object. It is made of a header and the sealed data.
//
// - implements serde.Message
type Object struct {
	version    int
	packageID  []byte
	identifier ident.Identifier
	threshold  int
	shares     []Share
	nonce      []byte
	ciphertext []byte
}

// Template is the function template to set the fields of an object.
type Template func(*Object)

// WithPackageID sets the package ID the object is scoped to.
func WithPackageID(id []byte) Template {
	return func(o *Object) {
		o.packageID = id
	}
}

// WithShares sets the threshold and the shares of the object.
func WithShares(threshold int, shares ...Share) Template {
	return func(o *Object) {
		o.threshold = threshold
		o.shares = shares
	}
}

// WithCiphertext sets the nonce and the ciphertext of the sealed data.
func WithCiphertext(nonce, ciphertext []byte) Template {
	return func(o *Object) {
		o.nonce = nonce
		o.ciphertext = ciphertext
	}
}

// WithVersion overrides the version of the framing.
func WithVersion(v int) Template {
	return func(o *Object) {
		o.version = v
	}
}

// NewObject creates a new object for the identifier.
func NewObject(id ident.Identifier, opts ...Template) Object {
	obj := Object{
		version:    Version,
		identifier: id,
	}

	for _, opt := range opts {
		opt(&obj)
	}

	return obj
}

// GetVersion returns the version of the framing.
func (o Object) GetVersion() int {
	return o.version
}

// GetPackageID returns the package ID the object is scoped to.
func (o Object) GetPackageID() []byte {
	return append([]byte{}, o.packageID...)
}

// GetIdentifier returns the identifier the object was sealed under.
func (o Object) GetIdentifier() ident.Identifier {
	return append(ident.Identifier{}, o.identifier...)
}

// GetThreshold returns the number of shares required to open the object.
func (o Object) GetThreshold() int {
	return o.threshold
}

// GetShares returns the shares of the header.
func (o Object) GetShares() []Share {
	return append([]Share{}, o.shares...)
}

// GetNonce returns the nonce of the sealed data.
func (o Object) GetNonce() []byte {
	return append([]byte{}, o.nonce...)
}

// GetCiphertext returns the sealed data.
func (o Object) GetCiphertext() []byte {
	return append([]byte{}, o.ciphertext...)
}

// Validate returns an error if the header is not well-formed.
func (o Object) Validate() error {
	if o.version != Version {
		return xerrors.Errorf("unsupported version %d", o.version)
	}

	if len(o.identifier) == 0 {
		return xerrors.New("empty identifier")
	}

	if o.threshold < 1 || o.threshold > len(o.shares) {
		return xerrors.Errorf("threshold %d out of range [1, %d]",
			o.threshold, len(o.shares))
	}

	return nil
}

// Serialize implements serde.Message.
func (o Object) Serialize(ctx serde.Context) ([]byte, error) {
	format := objFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, o)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// ObjectFactory is the factory for encrypted objects.
//
// - implements serde.Factory
type ObjectFactory struct{}

// NewObjectFactory returns a new factory.
func NewObjectFactory() ObjectFactory {
	return ObjectFactory{}
}

// Deserialize implements serde.Factory. It returns the encrypted object from
// the data if appropriate, otherwise an error.
func (f ObjectFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := objFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	return msg, nil
}

// Encode returns the JSON form of the object.
func Encode(obj Object) ([]byte, error) {
	err := obj.Validate()
	if err != nil {
		return nil, xerrors.Errorf("invalid object: %v", err)
	}

	return obj.Serialize(sjson.NewContext())
}

// Decode returns the object from its JSON form. The error matches
// ErrInvalidFormat if the data is not a well-formed encrypted object.
func Decode(data []byte) (Object, error) {
	msg, err := NewObjectFactory().Deserialize(sjson.NewContext(), data)
	if err != nil {
		return Object{}, NewInvalidFormatError(err)
	}

	obj, ok := msg.(Object)
	if !ok {
		return Object{}, NewInvalidFormatError(
			xerrors.Errorf("invalid message of type '%T'", msg))
	}

	err = obj.Validate()
	if err != nil {
		return Object{}, NewInvalidFormatError(err)
	}

	return obj, nil
}

// ExtractIdentifier returns the identifier embedded in the header of an
// encrypted object.
func ExtractIdentifier(data []byte) (ident.Identifier, error) {
	obj, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return obj.GetIdentifier(), nil
}
