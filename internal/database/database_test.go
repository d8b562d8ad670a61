package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestDB_Transactions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := NewFromEnv(ctx, &Config{FileName: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close(ctx)) }()

	require.NoError(t, db.Update(ctx, func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("b"))
		if err != nil {
			return err
		}
		return b.Put([]byte("k"), []byte("v"))
	}))

	var got []byte
	require.NoError(t, db.View(ctx, func(tx *bolt.Tx) error {
		got = append(got, tx.Bucket([]byte("b")).Get([]byte("k"))...)
		return nil
	}))
	assert.Equal(t, []byte("v"), got)

	failed := errors.New("failed")
	err = db.Update(ctx, func(*bolt.Tx) error { return failed })
	assert.True(t, errors.Is(err, failed))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	called := false
	err = db.View(cancelled, func(*bolt.Tx) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}
