package ledger

import (
	"encoding/binary"
	"sort"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/crypto"
	"golang.org/x/xerrors"
)

// Arg is an argument of a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// NewArg returns a new argument.
func NewArg(key string, value []byte) Arg {
	return Arg{Key: key, Value: value}
}

// Transaction is a signed request to execute a function of the contract.
type Transaction struct {
	Sender    account.Address
	PublicKey []byte
	Nonce     uint64
	Function  string
	Args      map[string][]byte
	Signature []byte
}

// NewTransaction creates a transaction and signs it with the account.
func NewTransaction(acc account.Account, nonce uint64, fn string, args ...Arg) (Transaction, error) {
	tx := Transaction{
		Sender:    acc.Address(),
		PublicKey: acc.PublicKeyBytes(),
		Nonce:     nonce,
		Function:  fn,
		Args:      make(map[string][]byte, len(args)),
	}

	for _, arg := range args {
		tx.Args[arg.Key] = arg.Value
	}

	sig, err := acc.Sign(tx.Digest())
	if err != nil {
		return tx, xerrors.Errorf("failed to sign transaction: %v", err)
	}

	tx.Signature = sig

	return tx, nil
}

// GetArg returns the value of the argument or nil if it is not set.
func (tx Transaction) GetArg(key string) []byte {
	return tx.Args[key]
}

// Digest returns the SHA-256 digest of the canonical fields of the
// transaction. The arguments are hashed in the order of their keys.
func (tx Transaction) Digest() []byte {
	nonce := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonce, tx.Nonce)

	keys := make([]string, 0, len(tx.Args))
	for key := range tx.Args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	chunks := [][]byte{tx.Sender[:], tx.PublicKey, nonce, lenPrefixed([]byte(tx.Function))}
	for _, key := range keys {
		chunks = append(chunks, lenPrefixed([]byte(key)), lenPrefixed(tx.Args[key]))
	}

	return crypto.Digest(crypto.NewSha256Factory(), chunks...)
}

// Verify returns nil if the transaction is signed by the public key and that
// the public key matches the sender.
func (tx Transaction) Verify() error {
	pubkey, err := account.UnmarshalPublicKey(tx.PublicKey)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ErrInvalidTransaction)
	}

	if account.AddressOf(pubkey) != tx.Sender {
		return xerrors.Errorf("public key does not match sender %v: %w",
			tx.Sender, ErrInvalidTransaction)
	}

	err = account.Verify(pubkey, tx.Digest(), tx.Signature)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ErrInvalidTransaction)
	}

	return nil
}

func lenPrefixed(data []byte) []byte {
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)

	return buf
}
