// Package account implements the Ed25519 accounts of the principals. An
// account signs the transactions and the session credentials, and it is known
// to the others by its 32-byte address.
package account

import (
	"crypto/cipher"
	"encoding/hex"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/eddsa"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/crypto/loader"
	"go.dedis.ch/sealbox/ident"
	"golang.org/x/xerrors"
)

// AddressSize is the size in bytes of an address.
const AddressSize = 32

// schemeFlag is prepended to the public key before hashing it to an address.
const schemeFlag = 0x00

// suite is the cryptographic suite of the account keys.
var suite = suites.MustFind("Ed25519")

var hashFac = crypto.NewHashFactory(crypto.Blake2b256)

// Suite returns the cryptographic suite used by the accounts.
func Suite() suites.Suite {
	return suite
}

// Address is the 32-byte identity of a principal.
type Address [AddressSize]byte

// AddressOf returns the address of the public key.
func AddressOf(pubkey kyber.Point) Address {
	data, err := pubkey.MarshalBinary()
	if err != nil {
		// Ed25519 points never fail to marshal.
		panic("failed to marshal public key: " + err.Error())
	}

	var addr Address
	copy(addr[:], crypto.Digest(hashFac, []byte{schemeFlag}, data))

	return addr
}

// ParseAddress returns the address from its hexadecimal form, with or without
// the 0x prefix.
func ParseAddress(s string) (Address, error) {
	data, err := ident.DecodeHex(s)
	if err != nil {
		return Address{}, err
	}

	return AddressFromBytes(data)
}

// AddressFromBytes returns the address of the given bytes.
func AddressFromBytes(data []byte) (Address, error) {
	var addr Address

	if len(data) != AddressSize {
		return addr, xerrors.Errorf("invalid address length %d", len(data))
	}

	copy(addr[:], data)

	return addr, nil
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	return append([]byte{}, a[:]...)
}

// IsZero returns true if the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String implements fmt.Stringer. It returns the 0x-prefixed hexadecimal form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}

// Account is a key pair able to sign on behalf of its address.
type Account struct {
	signer *eddsa.EdDSA
}

// Generate returns a new account from the random stream. A nil stream uses
// the default random source.
func Generate(stream cipher.Stream) Account {
	if stream == nil {
		stream = random.New()
	}

	return Account{signer: eddsa.NewEdDSA(stream)}
}

// FromBytes returns the account from its marshaled form.
func FromBytes(data []byte) (Account, error) {
	signer := &eddsa.EdDSA{}

	err := signer.UnmarshalBinary(data)
	if err != nil {
		return Account{}, xerrors.Errorf("failed to unmarshal key: %v", err)
	}

	return Account{signer: signer}, nil
}

// Address returns the address of the account.
func (a Account) Address() Address {
	return AddressOf(a.signer.Public)
}

// PublicKey returns the public key of the account.
func (a Account) PublicKey() kyber.Point {
	return a.signer.Public
}

// SecretKey returns the secret scalar of the account.
func (a Account) SecretKey() kyber.Scalar {
	return a.signer.Secret
}

// PublicKeyBytes returns the marshaled public key.
func (a Account) PublicKeyBytes() []byte {
	data, _ := a.signer.Public.MarshalBinary()
	return data
}

// Sign returns the Ed25519 signature of the message.
func (a Account) Sign(msg []byte) ([]byte, error) {
	sig, err := a.signer.Sign(msg)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	return sig, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (a Account) MarshalBinary() ([]byte, error) {
	return a.signer.MarshalBinary()
}

// Verify returns nil if the signature of the message matches the public key.
func Verify(pubkey kyber.Point, msg, sig []byte) error {
	err := eddsa.Verify(pubkey, msg, sig)
	if err != nil {
		return xerrors.Errorf("invalid signature: %v", err)
	}

	return nil
}

// UnmarshalPublicKey returns the public key from its marshaled form.
func UnmarshalPublicKey(data []byte) (kyber.Point, error) {
	point := suite.Point()

	err := point.UnmarshalBinary(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal public key: %v", err)
	}

	return point, nil
}

// LoadOrCreate returns the account stored in the file, or generates a new one
// and stores it if the file does not exist.
func LoadOrCreate(l loader.Loader) (Account, error) {
	data, err := l.LoadOrCreate(loader.GeneratorFunc(func() ([]byte, error) {
		return Generate(nil).MarshalBinary()
	}))
	if err != nil {
		return Account{}, xerrors.Errorf("failed to load key: %v", err)
	}

	return FromBytes(data)
}

// Load returns the account stored by the loader.
func Load(l loader.Loader) (Account, error) {
	data, err := l.Load()
	if err != nil {
		return Account{}, xerrors.Errorf("failed to load key: %v", err)
	}

	return FromBytes(data)
}
