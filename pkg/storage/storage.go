// Package storage implements the local report database: queued reports that
// couldn't be sent yet, fingerprints of submitted errors and a handful of
// persisted settings (consent flag, anonymous user ID).
package storage

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"
)

type txCtxKey struct{}

var (
	queueBucket       = []byte("queued_reports")
	fingerprintBucket = []byte("fingerprints")
	settingsBucket    = []byte("settings")
)

var db *bolt.DB

// Open opens (or creates) the database at the given path.
func Open(ctx context.Context, path string) error {
	newDB, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return eris.Wrapf(err, "failed to open report database %s", path)
	}

	buckets := [][]byte{queueBucket, fingerprintBucket, settingsBucket}
	err = newDB.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		newDB.Close()
		return err
	}

	db = newDB
	return nil
}

func Close(ctx context.Context) {
	db.Close()
	db = nil
}

func CtxWithTx(ctx context.Context, tx *bolt.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

func TxFromCtx(ctx context.Context) *bolt.Tx {
	val := ctx.Value(txCtxKey{})
	if val == nil {
		return nil
	}
	return val.(*bolt.Tx)
}

// BatchUpdate runs the callback inside a writable transaction which is passed
// down through the context.
func BatchUpdate(ctx context.Context, callback func(context.Context) error) error {
	return db.Batch(func(tx *bolt.Tx) error {
		return callback(CtxWithTx(ctx, tx))
	})
}

// BatchRead runs the callback inside a read-only transaction which is passed
// down through the context.
func BatchRead(ctx context.Context, callback func(context.Context) error) error {
	return db.View(func(tx *bolt.Tx) error {
		return callback(CtxWithTx(ctx, tx))
	})
}

// update runs cb in the context transaction if there is one and opens a new
// write transaction otherwise.
func update(ctx context.Context, cb func(*bolt.Tx) error) error {
	tx := TxFromCtx(ctx)
	if tx != nil {
		return cb(tx)
	}

	return db.Update(cb)
}

func view(ctx context.Context, cb func(*bolt.Tx) error) error {
	tx := TxFromCtx(ctx)
	if tx != nil {
		return cb(tx)
	}

	return db.View(cb)
}
