package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

// DefaultName is the snapshot object name.
const DefaultName = "scraping_progress.json"

// BlobStore implements crawler.CheckpointStore on top of a blob store.
type BlobStore struct {
	store crawler.BlobStore
	name  string
}

// NewBlobStore returns a checkpoint store writing name (DefaultName when
// empty) into store.
func NewBlobStore(store crawler.BlobStore, name string) *BlobStore {
	if name == "" {
		name = DefaultName
	}
	return &BlobStore{store: store, name: name}
}

// Load returns the stored snapshot, or nil when none exists.
func (s *BlobStore) Load(ctx context.Context) (*crawler.Snapshot, error) {
	data, err := s.store.GetObject(ctx, s.name)
	if errors.Is(err, crawler.ErrBlobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return decode(data)
}

// Save replaces the stored snapshot.
func (s *BlobStore) Save(ctx context.Context, snap crawler.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if _, err := s.store.PutObject(ctx, s.name, "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Delete removes the snapshot. A missing snapshot is not an error.
func (s *BlobStore) Delete(ctx context.Context) error {
	if err := s.store.DeleteObject(ctx, s.name); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func encode(snap crawler.Snapshot) ([]byte, error) {
	if snap.VisitedURLs == nil {
		snap.VisitedURLs = []string{}
	}
	if snap.URLsToVisit == nil {
		snap.URLsToVisit = []string{}
	}
	if snap.FailedURLs == nil {
		snap.FailedURLs = []string{}
	}
	if snap.MultilingualStats == nil {
		snap.MultilingualStats = map[crawler.Language]int{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*crawler.Snapshot, error) {
	var snap crawler.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &snap, nil
}
