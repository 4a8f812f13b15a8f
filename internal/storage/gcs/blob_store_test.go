package gcs_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/Paulino-Cristovao/webscrap/internal/storage/gcs"
)

const bucket = "test-bucket"

type fakeGCS struct {
	mu      sync.Mutex
	objects map[string]string
	names   []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/upload/storage/v1/b/"+bucket+"/o"):
		name := r.URL.Query().Get("name")
		body, _ := io.ReadAll(r.Body)
		f.objects[name] = string(body)
		f.names = append(f.names, name)
		fmt.Fprintf(w, `{"name": %q, "bucket": %q}`, name, bucket)
	case strings.Contains(r.URL.Path, "/b/"+bucket+"/o/"):
		name := r.URL.Path[strings.LastIndex(r.URL.Path, "/o/")+3:]
		if _, ok := f.objects[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"code": 404, "message": "Not Found"}}`)
			return
		}
		if r.Method == http.MethodDelete {
			delete(f.objects, name)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprintf(w, `{"name": %q, "bucket": %q}`, name, bucket)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newStore(t *testing.T, prefix string) (*gcs.BlobStore, *fakeGCS) {
	t.Helper()
	fake := &fakeGCS{objects: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := gcs.New(client, gcs.Config{Bucket: bucket, Prefix: prefix})
	require.NoError(t, err)
	return store, fake
}

func TestNewValidation(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: bucket})
	assert.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	_, err = gcs.New(client, gcs.Config{})
	assert.Error(t, err)
}

func TestPutObject(t *testing.T) {
	store, fake := newStore(t, "/runs/")

	uri, err := store.PutObject(context.Background(), "final_output/site_content_english.txt", "text/plain", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/runs/final_output/site_content_english.txt", uri)
	require.Equal(t, []string{"runs/final_output/site_content_english.txt"}, fake.names)
	assert.Contains(t, fake.objects["runs/final_output/site_content_english.txt"], "hello")

	_, err = store.PutObject(context.Background(), " ", "", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestExistsAndDelete(t *testing.T) {
	store, fake := newStore(t, "")
	ctx := context.Background()

	ok, err := store.Exists(ctx, "progress.json")
	require.NoError(t, err)
	assert.False(t, ok)

	fake.objects["progress.json"] = "{}"
	ok, err = store.Exists(ctx, "progress.json")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.DeleteObject(ctx, "progress.json"))
	assert.NotContains(t, fake.objects, "progress.json")
	require.NoError(t, store.DeleteObject(ctx, "progress.json"))
}
