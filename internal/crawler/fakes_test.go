package crawler

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = b
	return "mem://" + path, nil
}

func (f *fakeBlobs) GetObject(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrBlobNotFound)
	}
	return b, nil
}

func (f *fakeBlobs) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok, nil
}

func (f *fakeBlobs) DeleteObject(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobs) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type memCheckpoints struct {
	snap    *Snapshot
	saves   int
	deleted bool
	loadErr error
	saveErr error
}

func (m *memCheckpoints) Load(context.Context) (*Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	return &cp, nil
}

func (m *memCheckpoints) Save(_ context.Context, s Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = &s
	m.deleted = false
	return nil
}

func (m *memCheckpoints) Delete(context.Context) error {
	m.snap = nil
	m.deleted = true
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type staticIDs string

func (s staticIDs) NewID() (string, error) { return string(s), nil }

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, url, title, excerpt string) (AnalysisResult, error) {
	args := m.Called(ctx, url, title, excerpt)
	return args.Get(0).(AnalysisResult), args.Error(1)
}

type mockTranslator struct {
	mock.Mock
}

func (m *mockTranslator) Translate(ctx context.Context, text string, target Language) (string, error) {
	args := m.Called(ctx, text, target)
	return args.String(0), args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (RawPage, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(RawPage), args.Error(1)
}

// stubExtractor treats the body as "title\ntext\nlink link ...".
type stubExtractor struct{}

func (stubExtractor) Extract(page RawPage) (Extraction, error) {
	var out Extraction
	lines := strings.Split(string(page.Body), "\n")
	if len(lines) > 0 {
		out.Title = lines[0]
	}
	if len(lines) > 1 {
		out.Text = lines[1]
	}
	if len(lines) > 2 {
		out.Links = strings.Fields(lines[2])
	}
	return out, nil
}

type allowGuard struct {
	denied    map[string]bool
	throttles []time.Duration
}

func (g *allowGuard) Allowed(url string) bool { return !g.denied[url] }

func (g *allowGuard) Throttle(_ context.Context, latency time.Duration) {
	g.throttles = append(g.throttles, latency)
}
