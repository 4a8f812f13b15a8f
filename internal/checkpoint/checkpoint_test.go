package checkpoint_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulino-Cristovao/webscrap/internal/checkpoint"
	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
	"github.com/Paulino-Cristovao/webscrap/internal/storage/memory"
)

func sampleSnapshot() crawler.Snapshot {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return crawler.Snapshot{
		RunID:        "run-1",
		BaseURL:      "https://example.com/",
		VisitedURLs:  []string{"https://example.com/", "https://example.com/a"},
		URLsToVisit:  []string{"https://example.com/b"},
		PagesScraped: 2,
		FailedURLs:   []string{},
		LastUpdated:  at,
		MultilingualStats: map[crawler.Language]int{
			crawler.LanguageEnglish: 1,
			crawler.LanguageFrench:  1,
		},
		PageRecords: []crawler.PageRecord{{
			URL:             "https://example.com/a",
			Title:           "A",
			Text:            "body",
			Language:        crawler.LanguageFrench,
			Category:        "news",
			Keywords:        []string{"x"},
			ImportanceScore: 7,
			ScrapedAt:       at,
		}},
	}
}

func exercise(t *testing.T, store crawler.CheckpointStore) {
	t.Helper()
	ctx := context.Background()

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	want.PagesScraped = 3
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.PagesScraped)

	require.NoError(t, store.Delete(ctx))
	snap, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestBlobStore(t *testing.T) {
	exercise(t, checkpoint.NewBlobStore(memory.NewBlobStore(), ""))
}

func TestBlobStoreJSONFields(t *testing.T) {
	blobs := memory.NewBlobStore()
	store := checkpoint.NewBlobStore(blobs, "")
	require.NoError(t, store.Save(context.Background(), crawler.Snapshot{PagesScraped: 1}))

	data, err := blobs.GetObject(context.Background(), checkpoint.DefaultName)
	require.NoError(t, err)
	for _, field := range []string{`"visited_urls": []`, `"urls_to_visit": []`, `"pages_scraped": 1`, `"multilingual_stats": {}`, `"last_updated"`} {
		assert.Contains(t, string(data), field)
	}
}

func TestBlobStoreCorrupt(t *testing.T) {
	blobs := memory.NewBlobStore()
	_, err := blobs.PutObject(context.Background(), "progress.json", "", strings.NewReader("{not json"))
	require.NoError(t, err)

	_, err = checkpoint.NewBlobStore(blobs, "progress.json").Load(context.Background())
	assert.Error(t, err)
}

type failingBlobs struct {
	crawler.BlobStore
}

func (failingBlobs) GetObject(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestBlobStoreReadError(t *testing.T) {
	_, err := checkpoint.NewBlobStore(failingBlobs{}, "").Load(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.db")
	store, err := checkpoint.OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exercise(t, store)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, store.Close())

	reopened, err := checkpoint.OpenBolt(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"https://example.com/b"}, got.URLsToVisit)
}
