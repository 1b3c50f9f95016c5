// Package local implements a single-node ledger. It verifies the signed
// transactions, executes them with the policy contract and persists the state
// in a key/value database.
package local

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/core/store"
	"go.dedis.ch/sealbox/core/store/kv"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/ledger/policy"
	"golang.org/x/xerrors"
)

var (
	stateBucket = []byte("state")
	nonceBucket = []byte("nonces")
)

// DefaultPackageID returns the package ID of the policy contract of a local
// ledger.
func DefaultPackageID() []byte {
	return crypto.Digest(crypto.NewSha256Factory(), []byte("go.dedis.ch/sealbox.policy"))
}

// Ledger is a ledger running on a single node.
//
// - implements ledger.Service
type Ledger struct {
	sync.Mutex

	db        kv.DB
	packageID []byte
	contract  policy.Contract
	logger    zerolog.Logger
}

// NewLedger returns a new ledger using the database to store the state. The
// package ID identifies the policy contract the approve calls must target.
func NewLedger(db kv.DB, packageID []byte) *Ledger {
	return &Ledger{
		db:        db,
		packageID: append([]byte{}, packageID...),
		contract:  policy.NewContract(),
		logger:    sealbox.Logger.With().Str("role", "ledger").Logger(),
	}
}

// PackageID returns the package ID of the policy contract.
func (l *Ledger) PackageID() []byte {
	return append([]byte{}, l.packageID...)
}

// Submit implements ledger.Service. It verifies the transaction, then executes
// it. The state is updated only if the execution succeeds.
func (l *Ledger) Submit(ctx context.Context, tx ledger.Transaction) (ledger.Receipt, error) {
	err := ctx.Err()
	if err != nil {
		return ledger.Receipt{}, err
	}

	err = tx.Verify()
	if err != nil {
		return ledger.Receipt{}, err
	}

	l.Lock()
	defer l.Unlock()

	step := policy.NewStep(tx)

	err = l.db.Update(func(txn kv.WritableTx) error {
		nonces, err := txn.GetBucketOrCreate(nonceBucket)
		if err != nil {
			return err
		}

		expected := readNonce(nonces, tx.Sender)
		if tx.Nonce != expected {
			return xerrors.Errorf("nonce %d != %d: %w",
				tx.Nonce, expected, ledger.ErrInvalidTransaction)
		}

		bucket, err := txn.GetBucketOrCreate(stateBucket)
		if err != nil {
			return err
		}

		err = l.contract.Execute(bucketSnapshot{bucket: bucket}, step)
		if err != nil {
			return err
		}

		next := make([]byte, 8)
		binary.LittleEndian.PutUint64(next, expected+1)

		return nonces.Set(tx.Sender[:], next)
	})
	if err != nil {
		l.logger.Debug().Err(err).Str("function", tx.Function).Msg("transaction rejected")
		return ledger.Receipt{}, xerrors.Errorf("failed to execute: %w", err)
	}

	receipt := ledger.Receipt{
		TxID:    tx.Digest(),
		Created: step.Created(),
	}

	l.logger.Info().
		Str("function", tx.Function).
		Stringer("sender", tx.Sender).
		Int("created", len(receipt.Created)).
		Msg("transaction executed")

	return receipt, nil
}

// GetNonce implements ledger.Service. It returns the next nonce expected from
// the address.
func (l *Ledger) GetNonce(ctx context.Context, addr account.Address) (uint64, error) {
	var nonce uint64

	err := l.db.View(func(txn kv.ReadableTx) error {
		bucket := txn.GetBucket(nonceBucket)
		if bucket != nil {
			nonce = readNonce(bucket, addr)
		}

		return nil
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// Approve implements ledger.Authorizer. It runs the approve function against
// the current state without modifying it.
func (l *Ledger) Approve(ctx context.Context, sender account.Address, call ledger.ApproveCall) error {
	if !bytes.Equal(call.PackageID, l.packageID) {
		return xerrors.Errorf("unknown package %#x: %w",
			call.PackageID, ledger.ErrAccessDenied)
	}

	return l.db.View(func(txn kv.ReadableTx) error {
		return l.contract.Approve(readSnapshot(txn), sender, call)
	})
}

// GetObject implements ledger.Service.
func (l *Ledger) GetObject(ctx context.Context, id ledger.ObjectID) (ledger.Object, error) {
	var obj ledger.Object

	err := l.db.View(func(txn kv.ReadableTx) error {
		var err error
		obj, err = policy.GetObject(readSnapshot(txn), id)

		return err
	})
	if err != nil {
		return obj, err
	}

	return obj, nil
}

// OwnedObjects implements ledger.Service.
func (l *Ledger) OwnedObjects(ctx context.Context, owner account.Address, typ string) ([]ledger.ObjectID, error) {
	var ids []ledger.ObjectID

	err := l.db.View(func(txn kv.ReadableTx) error {
		var err error
		ids, err = policy.OwnedObjects(readSnapshot(txn), owner, typ)

		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func readNonce(bucket kv.Bucket, addr account.Address) uint64 {
	value := bucket.Get(addr[:])
	if len(value) != 8 {
		return 0
	}

	return binary.LittleEndian.Uint64(value)
}

func readSnapshot(txn kv.ReadableTx) store.Snapshot {
	bucket := txn.GetBucket(stateBucket)
	if bucket == nil {
		return bucketSnapshot{}
	}

	return bucketSnapshot{bucket: bucket}
}

// bucketSnapshot is the adapter of a bucket to a store snapshot. A snapshot
// without a bucket is empty.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket kv.Bucket
}

// Get implements store.Readable. It returns a copy of the value, which stays
// valid after the database transaction ends.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	if s.bucket == nil {
		return nil, nil
	}

	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	if s.bucket == nil {
		return xerrors.New("read-only snapshot")
	}

	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	if s.bucket == nil {
		return xerrors.New("read-only snapshot")
	}

	return s.bucket.Delete(key)
}
