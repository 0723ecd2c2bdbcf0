package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

var boltBucket = []byte("client")

type BoltTokenRepository struct {
	db *bolt.DB
}

// OpenBoltTokenRepository opens or creates the bolt file at path.
func OpenBoltTokenRepository(path string) (*BoltTokenRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), permDirectory); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	db, err := bolt.Open(path, permRepository, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return &BoltTokenRepository{db: db}, nil
}

func (r *BoltTokenRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get([]byte(key))
		if raw == nil {
			return shared.ErrNotExist
		}
		value = string(raw)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get value '%s': %w", key, err)
	}
	return value, nil
}

func (r *BoltTokenRepository) Set(ctx context.Context, key, value string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to set value '%s': %w", key, err)
	}
	return nil
}

func (r *BoltTokenRepository) Delete(ctx context.Context, key string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b.Get([]byte(key)) == nil {
			return shared.ErrNotExist
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete value '%s': %w", key, err)
	}
	return nil
}

func (r *BoltTokenRepository) Close() error {
	return r.db.Close()
}
