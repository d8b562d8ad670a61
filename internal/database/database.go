// Package database owns the bolt file the results store lives in.
package database

import (
	"context"
	"fmt"

	"github.com/go-sod/elens/internal/logging"
	bolt "go.etcd.io/bbolt"
)

type DB struct {
	DB *bolt.DB
}

// NewFromEnv opens the bolt file of config. Another process holding the file
// makes it fail after config.Timeout.
func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("opening results store %s", config.FileName)

	db, err := bolt.Open(config.FileName, 0600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("opening results store %s: %w", config.FileName, err)
	}

	return &DB{DB: db}, nil
}

// Update runs fn in a read-write transaction unless ctx is already done.
func (db *DB) Update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := db.DB.Update(fn); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}
	return nil
}

// View runs fn in a read-only transaction unless ctx is already done.
func (db *DB) View(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := db.DB.View(fn); err != nil {
		return fmt.Errorf("view transaction error: %w", err)
	}
	return nil
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Infof("closing results store")

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("error close results store: %w", err)
	}

	return nil
}
