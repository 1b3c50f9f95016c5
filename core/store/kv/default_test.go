package kv

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestBoltDB_UpdateAndView(t *testing.T) {
	db := makeDB(t)

	err := db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("objects"))
		require.NoError(t, err)

		return bucket.Set([]byte("ping"), []byte("pong"))
	})
	require.NoError(t, err)

	err = db.View(func(tx ReadableTx) error {
		bucket := tx.GetBucket([]byte("objects"))
		require.NotNil(t, bucket)
		require.Equal(t, []byte("pong"), bucket.Get([]byte("ping")))

		require.Nil(t, tx.GetBucket([]byte("nonces")))

		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(tx WritableTx) error {
		_, err := tx.GetBucketOrCreate(nil)
		return err
	})
	require.EqualError(t, err, "failed to create bucket: bucket name required")
}

func TestBoltDB_UpdateAbort(t *testing.T) {
	db := makeDB(t)

	err := db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("objects"))
		require.NoError(t, err)
		require.NoError(t, bucket.Set([]byte("ping"), []byte("pong")))

		return xerrors.New("oops")
	})
	require.EqualError(t, err, "oops")

	err = db.View(func(tx ReadableTx) error {
		require.Nil(t, tx.GetBucket([]byte("objects")))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.db")

	db, err := New(path)
	require.NoError(t, err)

	defer db.Close()

	old := OpenTimeout
	defer func() { OpenTimeout = old }()

	OpenTimeout = 10 * time.Millisecond

	_, err = New(path)
	require.EqualError(t, err, "failed to open db: '"+path+"' is used by another process")
}

func TestBoltBucket_SetDelete(t *testing.T) {
	db := makeDB(t)

	err := db.Update(func(tx WritableTx) error {
		b, err := tx.GetBucketOrCreate([]byte("objects"))
		require.NoError(t, err)

		require.NoError(t, b.Set([]byte("ping"), []byte("pong")))
		require.Equal(t, []byte("pong"), b.Get([]byte("ping")))
		require.Nil(t, b.Get([]byte("pong")))

		require.NoError(t, b.Delete([]byte("ping")))
		require.Nil(t, b.Get([]byte("ping")))

		return nil
	})
	require.NoError(t, err)
}

func TestBoltBucket_Scan(t *testing.T) {
	db := makeDB(t)

	err := db.Update(func(tx WritableTx) error {
		b, err := tx.GetBucketOrCreate([]byte("objects"))
		require.NoError(t, err)

		for _, key := range []string{"owner:b", "object:2", "owner:a", "object:1"} {
			require.NoError(t, b.Set([]byte(key), []byte{1}))
		}

		var keys []string
		err = b.Scan([]byte("owner:"), func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"owner:a", "owner:b"}, keys)

		keys = nil
		err = b.Scan(nil, func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
		require.NoError(t, err)
		require.Len(t, keys, 4)

		err = b.Scan(nil, func(k, v []byte) error {
			return xerrors.New("oops")
		})
		require.EqualError(t, err, "callback failed: oops")

		return nil
	})
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeDB(t *testing.T) DB {
	db, err := New(filepath.Join(t.TempDir(), "node.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}
