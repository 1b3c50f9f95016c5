package kv

import (
	"fmt"
	"os"
	"path/filepath"
)

func ExampleBucket_Scan() {
	dir, err := os.MkdirTemp(os.TempDir(), "sealbox")
	if err != nil {
		panic("failed to create folder: " + err.Error())
	}

	defer os.RemoveAll(dir)

	db, err := New(filepath.Join(dir, "node.db"))
	if err != nil {
		panic("failed to open db: " + err.Error())
	}

	defer db.Close()

	err = db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("ledger"))
		if err != nil {
			return err
		}

		for _, key := range []string{"nonce:bob", "object:1", "nonce:alice"} {
			err = bucket.Set([]byte(key), nil)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		panic("database write failed: " + err.Error())
	}

	err = db.View(func(tx ReadableTx) error {
		return tx.GetBucket([]byte("ledger")).Scan([]byte("nonce:"), func(key, _ []byte) error {
			fmt.Println(string(key))
			return nil
		})
	})
	if err != nil {
		panic("database read failed: " + err.Error())
	}

	// Output: nonce:alice
	// nonce:bob
}
