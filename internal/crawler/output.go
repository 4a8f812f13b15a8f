package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
)

// SummaryName is the object name of the run summary in the final store.
const SummaryName = "scraping_summary.json"

// Publisher renders assembled documents and writes them, together with the
// run summary, to the final output store.
type Publisher struct {
	store     BlobStore
	assembler *Assembler
	renderers []Renderer
	prefix    string
	logger    *zap.Logger
}

// NewPublisher builds a Publisher. Artifacts are named
// "<prefix>_<language>.<ext>".
func NewPublisher(store BlobStore, assembler *Assembler, renderers []Renderer, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "site_content"
	}
	return &Publisher{
		store:     store,
		assembler: assembler,
		renderers: renderers,
		prefix:    prefix,
		logger:    logger.Named("publisher"),
	}
}

// ArtifactName returns the object name for a language/extension pair.
func (p *Publisher) ArtifactName(lang Language, ext string) string {
	return fmt.Sprintf("%s_%s.%s", p.prefix, lang, ext)
}

// PublishDocuments assembles and renders every non-empty language bucket.
// Failures for one artifact do not stop the others; they are joined into
// the returned error.
func (p *Publisher) PublishDocuments(ctx context.Context, agg *Aggregator) ([]string, error) {
	var (
		written []string
		errs    []error
	)
	for _, lang := range TargetLanguages {
		doc, err := p.assembler.Assemble(ctx, lang, agg.Bucket(lang))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if doc == nil {
			p.logger.Debug("no content for language", zap.String("language", string(lang)))
			continue
		}
		for _, renderer := range p.renderers {
			name := p.ArtifactName(lang, renderer.Extension())
			data, err := renderer.Render(doc)
			if err != nil {
				errs = append(errs, fmt.Errorf("render %s: %w", name, err))
				metrics.ObservePersistenceFailure("document")
				continue
			}
			uri, err := p.store.PutObject(ctx, name, renderer.ContentType(), bytes.NewReader(data))
			if err != nil {
				errs = append(errs, fmt.Errorf("write %s: %w", name, err))
				metrics.ObservePersistenceFailure("document")
				continue
			}
			p.logger.Info("document written",
				zap.String("language", string(lang)),
				zap.String("uri", uri),
				zap.Int("sections", len(doc.Sections)),
			)
			written = append(written, name)
		}
	}
	return written, errors.Join(errs...)
}

// PublishSummary writes the run summary as indented JSON.
func (p *Publisher) PublishSummary(ctx context.Context, summary RunSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	uri, err := p.store.PutObject(ctx, SummaryName, "application/json", bytes.NewReader(data))
	if err != nil {
		metrics.ObservePersistenceFailure("summary")
		return "", fmt.Errorf("write summary: %w", err)
	}
	return uri, nil
}
