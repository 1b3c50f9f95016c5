// Package badgerblob implements a blob store on top of badger. The retention
// relies on the native TTL of the entries so that expired content is reported
// as not found.
package badgerblob

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/blob"
	"golang.org/x/xerrors"
)

// DefaultEpoch is the default duration of an epoch.
const DefaultEpoch = 24 * time.Hour

// Store is a blob store persisted in a badger database.
//
// - implements blob.Store
type Store struct {
	db     *badger.DB
	epoch  time.Duration
	logger zerolog.Logger
}

// Option is the type of options to create a store.
type Option func(*Store)

// WithEpoch sets the duration of an epoch. Badger expires the entries at the
// granularity of a second.
func WithEpoch(d time.Duration) Option {
	return func(s *Store) {
		s.epoch = d
	}
}

// NewStore opens or creates the badger database in the directory.
func NewStore(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		epoch:  DefaultEpoch,
		logger: sealbox.Logger.With().Str("role", "badgerblob").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	options := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: s.logger})

	db, err := badger.Open(options)
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	s.db = db

	return s, nil
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, data []byte, epochs int) (blob.ID, error) {
	err := blob.CheckEpochs(epochs)
	if err != nil {
		return "", err
	}

	id := blob.ComputeID(data)

	entry := badger.NewEntry([]byte(id), data).WithTTL(time.Duration(epochs) * s.epoch)

	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err == nil && item.ExpiresAt() > entry.ExpiresAt {
			entry.ExpiresAt = item.ExpiresAt()
		}

		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}

		return txn.SetEntry(entry)
	})
	if err != nil {
		return "", xerrors.Errorf("failed to store blob: %v", err)
	}

	s.logger.Debug().
		Stringer("blob", id).
		Int("size", len(data)).
		Uint64("expiry", entry.ExpiresAt).
		Msg("blob stored")

	return id, nil
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, id blob.ID) ([]byte, error) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return nil, xerrors.Errorf("%v: %w", id, blob.ErrNotFound)
	}

	if err != nil {
		return nil, xerrors.Errorf("failed to read blob: %v", err)
	}

	return data, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger forwards the logs of badger to the zerolog logger.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msg(trim(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msg(trim(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msg(trim(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msg(trim(format, args))
}

func trim(format string, args []interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}

	return msg
}
