package crawler

import (
	"net/http"
	"time"
)

// Language is the tag the classification oracle assigns to a page.
type Language string

// Language values recognized by the aggregator. Anything else is treated as
// unknown and excluded from the multilingual documents.
const (
	LanguageEnglish    Language = "english"
	LanguageFrench     Language = "french"
	LanguagePortuguese Language = "portuguese"
	LanguageMixed      Language = "mixed"
	LanguageUnknown    Language = "unknown"
)

// TargetLanguages lists the document languages in output order.
var TargetLanguages = []Language{LanguageEnglish, LanguageFrench, LanguagePortuguese}

// ParseLanguage maps free-form oracle output onto a Language.
func ParseLanguage(raw string) Language {
	switch Language(normalizeTag(raw)) {
	case LanguageEnglish:
		return LanguageEnglish
	case LanguageFrench:
		return LanguageFrench
	case LanguagePortuguese:
		return LanguagePortuguese
	case LanguageMixed:
		return LanguageMixed
	default:
		return LanguageUnknown
	}
}

// Title returns the capitalized display name, e.g. "French".
func (l Language) Title() string {
	return titleWord(string(l))
}

// Default analysis values used whenever the oracle is absent or fails.
const (
	DefaultCategory        = "general"
	DefaultImportanceScore = 5
	MinImportanceScore     = 1
	MaxImportanceScore     = 10
	MaxKeywords            = 5
	SummaryRunes           = 200
)

// AnalysisResult is the classification oracle's view of a page.
type AnalysisResult struct {
	Language        Language `json:"language"`
	Category        string   `json:"category"`
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	ImportanceScore int      `json:"importance_score"`
}

// DefaultAnalysis synthesizes the fallback result for text when the oracle
// cannot be consulted.
func DefaultAnalysis(text string) AnalysisResult {
	return AnalysisResult{
		Language:        LanguageUnknown,
		Category:        DefaultCategory,
		Summary:         TruncateSummary(text),
		Keywords:        []string{},
		ImportanceScore: DefaultImportanceScore,
	}
}

// Sanitize clamps an oracle result into the documented ranges.
func (a AnalysisResult) Sanitize() AnalysisResult {
	out := a
	if out.Language == "" {
		out.Language = LanguageUnknown
	}
	if out.Category == "" {
		out.Category = DefaultCategory
	}
	keywords := make([]string, 0, len(a.Keywords))
	for _, kw := range a.Keywords {
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	out.Keywords = keywords
	switch {
	case out.ImportanceScore == 0:
		out.ImportanceScore = DefaultImportanceScore
	case out.ImportanceScore < MinImportanceScore:
		out.ImportanceScore = MinImportanceScore
	case out.ImportanceScore > MaxImportanceScore:
		out.ImportanceScore = MaxImportanceScore
	}
	return out
}

// PageRecord is the immutable result of processing one page.
type PageRecord struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Text            string    `json:"content"`
	Language        Language  `json:"language"`
	Category        string    `json:"category"`
	Summary         string    `json:"summary"`
	Keywords        []string  `json:"keywords"`
	ImportanceScore int       `json:"importance_score"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// NewPageRecord combines extracted content with its analysis.
func NewPageRecord(url, title, text string, analysis AnalysisResult, scrapedAt time.Time) PageRecord {
	keywords := append([]string(nil), analysis.Keywords...)
	if keywords == nil {
		keywords = []string{}
	}
	return PageRecord{
		URL:             url,
		Title:           title,
		Text:            text,
		Language:        analysis.Language,
		Category:        analysis.Category,
		Summary:         analysis.Summary,
		Keywords:        keywords,
		ImportanceScore: analysis.ImportanceScore,
		ScrapedAt:       scrapedAt,
	}
}

// RawPage is what the fetcher hands to the page processor.
type RawPage struct {
	URL         string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	Latency     time.Duration
	Attempts    int
}

// Extraction is the parsed view of a fetched page.
type Extraction struct {
	Title string
	Text  string
	Links []string
}

// Outcome is returned by the page processor for a single URL. Record is nil
// when the page was skipped; Latency reports the fetch duration (zero when no
// fetch was performed) and drives adaptive throttling.
type Outcome struct {
	Record  *PageRecord
	Links   []string
	Latency time.Duration
}

// ContentsEntry is one line of a document's table of contents.
type ContentsEntry struct {
	Ordinal         int
	Title           string
	Category        string
	ImportanceScore int
}

// Section is the rendered form of one page inside a document.
type Section struct {
	Ordinal          int
	Title            string
	URL              string
	Category         string
	OriginalLanguage Language
	ImportanceScore  int
	Keywords         []string
	Summary          string
	ScrapedAt        time.Time
	Body             string
	Translated       bool
}

// Document is the consolidated, ranked view of one language bucket.
type Document struct {
	Language    Language
	Title       string
	SourceURL   string
	GeneratedAt time.Time
	Contents    []ContentsEntry
	Sections    []Section
}

// Artifact is a rendered output file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// LanguageStats summarizes one bucket for the run summary.
type LanguageStats struct {
	PageCount  int      `json:"page_count"`
	Categories []string `json:"categories"`
}

// Snapshot is the durable crawl state written between batches.
type Snapshot struct {
	RunID             string           `json:"run_id,omitempty"`
	BaseURL           string           `json:"base_url,omitempty"`
	VisitedURLs       []string         `json:"visited_urls"`
	URLsToVisit       []string         `json:"urls_to_visit"`
	PagesScraped      int              `json:"pages_scraped"`
	FailedURLs        []string         `json:"failed_urls"`
	LastUpdated       time.Time        `json:"last_updated"`
	MultilingualStats map[Language]int `json:"multilingual_stats"`
	PageRecords       []PageRecord     `json:"page_records,omitempty"`
}

// RunSummary is written once a crawl completes.
type RunSummary struct {
	RunID                 string                     `json:"run_id"`
	BaseURL               string                     `json:"base_url"`
	TotalPages            int                        `json:"total_pages"`
	FailedURLs            []string                   `json:"failed_urls"`
	ScrapedURLs           []string                   `json:"scraped_urls"`
	VisitedURLs           []string                   `json:"visited_urls"`
	CompletedAt           time.Time                  `json:"completed_at"`
	OracleEnabled         bool                       `json:"ai_enabled"`
	MultilingualBreakdown map[Language]LanguageStats `json:"multilingual_breakdown"`
}
