// Package database stores classifier results in bolt buckets.
//
// Predictions of one result set live in the bucket "results:<key>" keyed by
// their big-endian instance index. The bucket "results:meta" maps every key
// to its finalized Meta, and doubles as the index of stored result sets.
package database

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sod/elens/internal/database"
	"github.com/go-sod/elens/internal/results"
	bolt "go.etcd.io/bbolt"
)

const (
	metaBucket = "results:meta"
	prefix     = "results:"
)

var (
	_ results.Sink = (*DB)(nil)

	ErrNotFound   = errors.New("results: result set not found")
	ErrIncomplete = errors.New("results: result set is missing predictions")
)

type FilterFn func(meta results.Meta) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func bucketName(key results.Key) []byte {
	return []byte(prefix + key.String())
}

func indexKey(i int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(i))
	return b[:]
}

// Append stores one prediction. Concurrent callers are coalesced into shared
// transactions.
func (db *DB) Append(_ context.Context, record results.Record) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(record.Key))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if err := b.Put(indexKey(record.Index), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}
	return nil
}

// AppendMany stores a run of predictions in one transaction.
func (db *DB) AppendMany(ctx context.Context, records []results.Record) error {
	if err := db.sDB.Update(ctx, func(tx *bolt.Tx) error {
		for _, record := range records {
			b, err := tx.CreateBucketIfNotExists(bucketName(record.Key))
			if err != nil {
				return fmt.Errorf("create bucket: %w", err)
			}
			bytes, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("marshal record: %w", err)
			}
			if err := b.Put(indexKey(record.Index), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return nil
}

// Finalize records meta and checks that every prediction was appended.
func (db *DB) Finalize(ctx context.Context, meta results.Meta) error {
	bytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := db.sDB.Update(ctx, func(tx *bolt.Tx) error {
		var stored int
		if b := tx.Bucket(bucketName(meta.Key)); b != nil {
			if err := b.ForEach(func(_, _ []byte) error {
				stored++
				return nil
			}); err != nil {
				return err
			}
		}
		if stored != meta.Count {
			return fmt.Errorf("%w: %s has %d of %d", ErrIncomplete, meta.Key, stored, meta.Count)
		}
		b, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return fmt.Errorf("unable create meta bucket: %w", err)
		}
		return b.Put([]byte(meta.Key.String()), bytes)
	}); err != nil {
		return err
	}
	return nil
}

// Metas returns the finalized result sets accepted by filter.
func (db *DB) Metas(ctx context.Context, filter FilterFn) ([]results.Meta, error) {
	var metas []results.Meta
	if err := db.sDB.View(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var meta results.Meta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("meta unmarshal error: %w", err)
			}
			if filter == nil || filter(meta) {
				metas = append(metas, meta)
			}
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return metas, nil
}

// Load reads a finalized result set back.
func (db *DB) Load(ctx context.Context, key results.Key) (*results.Results, error) {
	var r *results.Results
	if err := db.sDB.View(ctx, func(tx *bolt.Tx) error {
		mb := tx.Bucket([]byte(metaBucket))
		if mb == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		raw := mb.Get([]byte(key.String()))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		var meta results.Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("meta unmarshal error: %w", err)
		}

		r = results.New(key.Classifier, key.Dataset, key.Split, meta.NumClasses)
		r.Fold = key.Fold
		r.Params = meta.Params
		r.Regression = meta.Regression
		r.BuildTime = meta.BuildTime
		r.Predictions = make([]results.Prediction, 0, meta.Count)

		b := tx.Bucket(bucketName(key))
		if b == nil {
			if meta.Count == 0 {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrIncomplete, key)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var record results.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("record unmarshal error: %w", err)
			}
			if record.Index != len(r.Predictions) {
				return fmt.Errorf("%w: %s has no prediction %d", ErrIncomplete, key, len(r.Predictions))
			}
			r.Predictions = append(r.Predictions, record.Prediction)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a result set and its meta.
func (db *DB) Delete(ctx context.Context, key results.Key) error {
	if err := db.sDB.Update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(bucketName(key)) != nil {
			if err := tx.DeleteBucket(bucketName(key)); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		if b := tx.Bucket([]byte(metaBucket)); b != nil {
			return b.Delete([]byte(key.String()))
		}
		return nil
	}); err != nil {
		return err
	}
	return nil
}
