package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

var (
	bucketName  = []byte("checkpoint")
	snapshotKey = []byte("snapshot")
)

// BoltStore implements crawler.CheckpointStore in a bbolt database.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Load returns the stored snapshot, or nil when none exists.
func (s *BoltStore) Load(_ context.Context) (*crawler.Snapshot, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(snapshotKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return decode(data)
}

// Save replaces the stored snapshot in a single transaction.
func (s *BoltStore) Save(_ context.Context, snap crawler.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(snapshotKey, data)
	})
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Delete removes the snapshot.
func (s *BoltStore) Delete(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(snapshotKey)
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
