// Package kvblob implements a blob store on top of the key/value database.
// The retention is counted in epochs of fixed duration and the expired
// content is reported as such until it is overwritten or purged.
package kvblob

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/core/store/kv"
	"golang.org/x/xerrors"
)

// DefaultEpoch is the default duration of an epoch.
const DefaultEpoch = 24 * time.Hour

var blobBucket = []byte("blobs")

// Clock is the source of time of the store.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Store is a blob store persisted in a key/value database.
//
// - implements blob.Store
type Store struct {
	db     kv.DB
	epoch  time.Duration
	clock  Clock
	logger zerolog.Logger
}

// Option is the type of options to create a store.
type Option func(*Store)

// WithEpoch sets the duration of an epoch.
func WithEpoch(d time.Duration) Option {
	return func(s *Store) {
		s.epoch = d
	}
}

// WithClock sets the clock used to compute the expirations.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// NewStore returns a blob store using the database.
func NewStore(db kv.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		epoch:  DefaultEpoch,
		clock:  systemClock{},
		logger: sealbox.Logger.With().Str("role", "kvblob").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, data []byte, epochs int) (blob.ID, error) {
	err := blob.CheckEpochs(epochs)
	if err != nil {
		return "", err
	}

	id := blob.ComputeID(data)
	expiry := s.clock.Now().Add(time.Duration(epochs) * s.epoch).UnixMilli()

	err = s.db.Update(func(txn kv.WritableTx) error {
		bucket, err := txn.GetBucketOrCreate(blobBucket)
		if err != nil {
			return xerrors.Errorf("bucket: %v", err)
		}

		current := bucket.Get([]byte(id))
		if len(current) >= 8 {
			prev := int64(binary.LittleEndian.Uint64(current))
			if prev > expiry {
				expiry = prev
			}
		}

		return bucket.Set([]byte(id), encodeEntry(expiry, data))
	})
	if err != nil {
		return "", xerrors.Errorf("failed to store blob: %v", err)
	}

	s.logger.Debug().
		Stringer("blob", id).
		Int("size", len(data)).
		Time("expiry", time.UnixMilli(expiry)).
		Msg("blob stored")

	return id, nil
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, id blob.ID) ([]byte, error) {
	var entry []byte

	err := s.db.View(func(txn kv.ReadableTx) error {
		bucket := txn.GetBucket(blobBucket)
		if bucket == nil {
			return nil
		}

		value := bucket.Get([]byte(id))
		if value != nil {
			entry = append([]byte{}, value...)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read blob: %v", err)
	}

	if entry == nil {
		return nil, xerrors.Errorf("%v: %w", id, blob.ErrNotFound)
	}

	expiry, data, err := decodeEntry(entry)
	if err != nil {
		return nil, xerrors.Errorf("blob %v: %v", id, err)
	}

	if !s.clock.Now().Before(time.UnixMilli(expiry)) {
		return nil, xerrors.Errorf("%v at %v: %w",
			id, time.UnixMilli(expiry).Format(time.RFC3339), blob.ErrExpired)
	}

	return data, nil
}

// Purge removes the entries that expired at least one epoch ago, and returns
// the number of entries removed. The entries that expired more recently are
// still reported as expired.
func (s *Store) Purge(ctx context.Context) (int, error) {
	limit := s.clock.Now().Add(-s.epoch)
	removed := 0

	err := s.db.Update(func(txn kv.WritableTx) error {
		bucket := txn.GetBucket(blobBucket)
		if bucket == nil {
			return nil
		}

		var keys [][]byte

		err := bucket.Scan(nil, func(k, v []byte) error {
			expiry, _, err := decodeEntry(v)
			if err != nil || time.UnixMilli(expiry).After(limit) {
				return nil
			}

			keys = append(keys, append([]byte{}, k...))

			return ctx.Err()
		})
		if err != nil {
			return xerrors.Errorf("scan: %v", err)
		}

		for _, key := range keys {
			err = bucket.Delete(key)
			if err != nil {
				return xerrors.Errorf("delete: %v", err)
			}
		}

		removed = len(keys)

		return nil
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to purge: %v", err)
	}

	return removed, nil
}

func encodeEntry(expiry int64, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint64(buf, uint64(expiry))
	copy(buf[8:], data)

	return buf
}

func decodeEntry(entry []byte) (int64, []byte, error) {
	if len(entry) < 8 {
		return 0, nil, xerrors.Errorf("entry too short: %d", len(entry))
	}

	return int64(binary.LittleEndian.Uint64(entry)), entry[8:], nil
}
