package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const recordRule = 80

// RecordWriter stores each processed page as a text file with a metadata
// header plus a JSON sidecar.
type RecordWriter struct {
	store  BlobStore
	hasher Hasher
	used   map[string]struct{}
}

// NewRecordWriter writes page files into store. hasher may be nil, in which
// case the sidecar carries no content digest.
func NewRecordWriter(store BlobStore, hasher Hasher) *RecordWriter {
	return &RecordWriter{store: store, hasher: hasher, used: make(map[string]struct{})}
}

type recordMetadata struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Language        Language  `json:"language"`
	Category        string    `json:"category"`
	Summary         string    `json:"summary"`
	Keywords        []string  `json:"keywords"`
	ImportanceScore int       `json:"importance_score"`
	ScrapedAt       time.Time `json:"scraped_at"`
	ContentLength   int       `json:"content_length"`
	ContentSHA256   string    `json:"content_sha256,omitempty"`
	File            string    `json:"file"`
}

// Write persists record and returns the name of the text file.
func (w *RecordWriter) Write(ctx context.Context, record PageRecord) (string, error) {
	stem, err := w.reserve(ctx, recordBaseName(record.URL))
	if err != nil {
		return "", err
	}
	textName := stem + ".txt"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "URL: %s\n", record.URL)
	fmt.Fprintf(&buf, "Title: %s\n", record.Title)
	fmt.Fprintf(&buf, "Language: %s\n", record.Language)
	fmt.Fprintf(&buf, "Category: %s\n", record.Category)
	fmt.Fprintf(&buf, "Importance Score: %d\n", record.ImportanceScore)
	fmt.Fprintf(&buf, "Keywords: %s\n", strings.Join(record.Keywords, ", "))
	fmt.Fprintf(&buf, "Scraped on: %s\n", record.ScrapedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "AI Summary: %s\n", record.Summary)
	buf.WriteString(strings.Repeat("=", recordRule))
	buf.WriteString("\n\n")
	buf.WriteString(record.Text)
	if _, err := w.store.PutObject(ctx, textName, "text/plain; charset=utf-8", &buf); err != nil {
		return "", fmt.Errorf("write record %s: %w", textName, err)
	}

	digest := ""
	if w.hasher != nil {
		if digest, err = w.hasher.Hash([]byte(record.Text)); err != nil {
			return "", fmt.Errorf("hash %s: %w", record.URL, err)
		}
	}

	meta, err := json.MarshalIndent(recordMetadata{
		URL:             record.URL,
		Title:           record.Title,
		Language:        record.Language,
		Category:        record.Category,
		Summary:         record.Summary,
		Keywords:        record.Keywords,
		ImportanceScore: record.ImportanceScore,
		ScrapedAt:       record.ScrapedAt,
		ContentLength:   len(record.Text),
		ContentSHA256:   digest,
		File:            textName,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata for %s: %w", record.URL, err)
	}
	metaName := stem + "_metadata.json"
	if _, err := w.store.PutObject(ctx, metaName, "application/json", bytes.NewReader(meta)); err != nil {
		return "", fmt.Errorf("write metadata %s: %w", metaName, err)
	}
	return textName, nil
}

// reserve picks the first free stem among name, name_1, name_2, ...
func (w *RecordWriter) reserve(ctx context.Context, name string) (string, error) {
	candidate := name
	for i := 1; ; i++ {
		if _, taken := w.used[candidate]; !taken {
			exists, err := w.store.Exists(ctx, candidate+".txt")
			if err != nil {
				return "", fmt.Errorf("check record %s: %w", candidate, err)
			}
			if !exists {
				w.used[candidate] = struct{}{}
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
}
