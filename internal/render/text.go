package render

import (
	"fmt"
	"strings"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

var (
	rule80 = strings.Repeat("=", 80)
	rule60 = strings.Repeat("=", 60)
	dash60 = strings.Repeat("-", 60)
	dash40 = strings.Repeat("-", 40)
)

// Text renders the flat consolidated .txt document.
type Text struct{}

// Extension implements crawler.Renderer.
func (Text) Extension() string { return "txt" }

// ContentType implements crawler.Renderer.
func (Text) ContentType() string { return "text/plain; charset=utf-8" }

// Render implements crawler.Renderer.
func (Text) Render(doc *crawler.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render text: nil document")
	}
	name := languageName(doc.Language)
	lines := []string{
		rule80,
		strings.ToUpper(doc.Title) + " - " + strings.ToUpper(name),
		rule80,
		"Generated on: " + doc.GeneratedAt.Format(timeLayout),
		fmt.Sprintf("Total pages: %d", len(doc.Sections)),
		"Language: " + name,
		"Source: " + doc.SourceURL,
		rule80,
		"",
		"TABLE OF CONTENTS",
		dash40,
	}
	for _, entry := range doc.Contents {
		lines = append(lines, fmt.Sprintf("%2d. %s (%s) [Score: %d]",
			entry.Ordinal, entry.Title, categoryLabel(entry.Category), entry.ImportanceScore))
	}
	lines = append(lines, "", rule80, "")

	for _, s := range doc.Sections {
		lines = append(lines,
			fmt.Sprintf("PAGE %d: %s", s.Ordinal, strings.ToUpper(s.Title)),
			rule60,
			"URL: "+s.URL,
			"Category: "+categoryLabel(s.Category),
			"Original Language: "+s.OriginalLanguage.Title(),
			fmt.Sprintf("Importance Score: %d/10", s.ImportanceScore),
			"Keywords: "+keywordList(s.Keywords),
			"AI Summary: "+summaryOrDefault(s.Summary),
			"Scraped: "+s.ScrapedAt.Format(timeLayout),
			dash60,
			"",
			s.Body,
			"",
			rule80,
			"",
		)
	}
	return []byte(strings.Join(lines, "\n")), nil
}
