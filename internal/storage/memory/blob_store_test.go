package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	uri, err := store.PutObject(ctx, "path/page.txt", "text/plain", bytes.NewReader([]byte("content")))
	require.NoError(t, err)
	assert.Equal(t, "memory://path/page.txt", uri)

	got, err := store.GetObject(ctx, "path/page.txt")
	require.NoError(t, err)
	got[0] = 'C'

	again, err := store.GetObject(ctx, "path/page.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(again))
}

func TestBlobStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()

	_, err := store.GetObject(ctx, "missing")
	require.ErrorIs(t, err, crawler.ErrBlobNotFound)

	_, err = store.PutObject(ctx, "b.txt", "", bytes.NewReader(nil))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "a.txt", "", bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, store.Keys())

	ok, err := store.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.DeleteObject(ctx, "a.txt"))
	ok, err = store.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
