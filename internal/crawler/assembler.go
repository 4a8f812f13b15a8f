package crawler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/metrics"
)

// AssemblerConfig controls document metadata.
type AssemblerConfig struct {
	Title     string
	SourceURL string
}

// Assembler builds ranked per-language documents from aggregated records.
type Assembler struct {
	cfg        AssemblerConfig
	translator Translator
	clock      Clock
	logger     *zap.Logger
}

// NewAssembler builds an Assembler. translator may be nil, in which case
// records are rendered in their original language.
func NewAssembler(cfg AssemblerConfig, translator Translator, clock Clock, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Complete Website Content"
	}
	return &Assembler{
		cfg:        cfg,
		translator: translator,
		clock:      clock,
		logger:     logger.Named("assembler"),
	}
}

// SortRecords orders records by importance descending, then category
// descending, then URL ascending.
func SortRecords(records []PageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		if a.Category != b.Category {
			return a.Category > b.Category
		}
		return a.URL < b.URL
	})
}

// Assemble produces the document for one language. It returns nil when the
// bucket is empty. Records whose language differs from lang are translated;
// when translation fails the original text is kept.
func (a *Assembler) Assemble(ctx context.Context, lang Language, bucket []PageRecord) (*Document, error) {
	if len(bucket) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", lang, err)
	}

	records := append([]PageRecord(nil), bucket...)
	SortRecords(records)

	doc := &Document{
		Language:    lang,
		Title:       a.cfg.Title,
		SourceURL:   a.cfg.SourceURL,
		GeneratedAt: a.now(),
		Contents:    make([]ContentsEntry, 0, len(records)),
		Sections:    make([]Section, 0, len(records)),
	}
	for i, rec := range records {
		ordinal := i + 1
		title := rec.Title
		if title == "" {
			title = rec.URL
		}
		doc.Contents = append(doc.Contents, ContentsEntry{
			Ordinal:         ordinal,
			Title:           title,
			Category:        rec.Category,
			ImportanceScore: rec.ImportanceScore,
		})
		body, translated := a.body(ctx, rec, lang)
		doc.Sections = append(doc.Sections, Section{
			Ordinal:          ordinal,
			Title:            title,
			URL:              rec.URL,
			Category:         rec.Category,
			OriginalLanguage: rec.Language,
			ImportanceScore:  rec.ImportanceScore,
			Keywords:         append([]string(nil), rec.Keywords...),
			Summary:          rec.Summary,
			ScrapedAt:        rec.ScrapedAt,
			Body:             body,
			Translated:       translated,
		})
	}
	return doc, nil
}

func (a *Assembler) body(ctx context.Context, rec PageRecord, lang Language) (string, bool) {
	if rec.Language == lang || a.translator == nil || rec.Text == "" {
		return rec.Text, false
	}
	translated, err := a.translator.Translate(ctx, rec.Text, lang)
	if err != nil || translated == "" {
		metrics.ObserveOracleFallback("translate")
		a.logger.Warn("translation failed; keeping original text",
			zap.String("url", rec.URL),
			zap.String("target", string(lang)),
			zap.Error(err),
		)
		return rec.Text, false
	}
	return translated, translated != rec.Text
}

func (a *Assembler) now() time.Time {
	if a.clock == nil {
		return time.Now().UTC()
	}
	return a.clock.Now()
}
