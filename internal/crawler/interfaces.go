package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves a URL subject to the politeness size and type guards.
// It returns a *SkipError for guarded pages and a *FetchError once retries
// are exhausted.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (RawPage, error)
}

// Extractor parses a fetched page into title, visible text and raw hrefs.
type Extractor interface {
	Extract(page RawPage) (Extraction, error)
}

// Classifier is the content-analysis oracle.
type Classifier interface {
	Classify(ctx context.Context, url, title, excerpt string) (AnalysisResult, error)
}

// Translator is the translation oracle. Implementations return the input
// unchanged when it is already in the target language.
type Translator interface {
	Translate(ctx context.Context, text string, target Language) (string, error)
}

// Renderer turns an assembled document into an output artifact.
type Renderer interface {
	Extension() string
	ContentType() string
	Render(doc *Document) ([]byte, error)
}

// BlobStore persists raw files and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	DeleteObject(ctx context.Context, path string) error
}

// CheckpointStore persists crawl snapshots. Load returns (nil, nil) when no
// snapshot exists.
type CheckpointStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Delete(ctx context.Context) error
}

// Guard enforces robots policy, header checks and inter-request delays.
type Guard interface {
	Allowed(url string) bool
	Throttle(ctx context.Context, latency time.Duration)
}

// Hasher digests page content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
