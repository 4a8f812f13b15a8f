package render

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/nao1215/markdown"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

// Markdown renders a paginated Markdown document: a title page with run
// metadata, a table of contents, then one page per section separated by
// horizontal rules.
type Markdown struct{}

// Extension implements crawler.Renderer.
func (Markdown) Extension() string { return "md" }

// ContentType implements crawler.Renderer.
func (Markdown) ContentType() string { return "text/markdown; charset=utf-8" }

// Render implements crawler.Renderer.
func (Markdown) Render(doc *crawler.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render markdown: nil document")
	}
	var buf bytes.Buffer
	m := md.NewMarkdown(&buf)
	name := languageName(doc.Language)

	m.H1(fmt.Sprintf("%s - %s", doc.Title, name)).LF()
	m.Table(md.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Generated", doc.GeneratedAt.Format(timeLayout)},
			{"Total pages", fmt.Sprintf("%d", len(doc.Sections))},
			{"Language", name},
			{"Source", doc.SourceURL},
		},
	}).LF()
	m.HorizontalRule().LF()

	m.H2("Table of Contents").LF()
	toc := make([]string, 0, len(doc.Contents))
	for _, entry := range doc.Contents {
		toc = append(toc, fmt.Sprintf("%s (%s) [Score: %d]",
			md.Link(entry.Title, anchor(entry.Ordinal)), categoryLabel(entry.Category), entry.ImportanceScore))
	}
	m.OrderedList(toc...).LF()

	for _, s := range doc.Sections {
		m.HorizontalRule().LF()
		m.PlainText(fmt.Sprintf(`<a id="page-%d"></a>`, s.Ordinal)).LF()
		m.H2(fmt.Sprintf("Page %d: %s", s.Ordinal, s.Title)).LF()

		meta := []string{
			md.Bold("URL:") + " " + s.URL,
			md.Bold("Category:") + " " + categoryLabel(s.Category),
			md.Bold("Original Language:") + " " + s.OriginalLanguage.Title(),
			md.Bold("Importance Score:") + fmt.Sprintf(" %d/10", s.ImportanceScore),
			md.Bold("Keywords:") + " " + keywordList(s.Keywords),
			md.Bold("Scraped:") + " " + s.ScrapedAt.Format(timeLayout),
		}
		if s.Translated {
			meta = append(meta, md.Italic("Translated to "+name))
		}
		m.BulletList(meta...).LF()
		m.Blockquote(summaryOrDefault(s.Summary)).LF()

		for _, paragraph := range strings.Split(s.Body, "\n\n") {
			if p := strings.TrimSpace(paragraph); p != "" {
				m.PlainText(p).LF()
			}
		}
	}

	if err := m.Build(); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func anchor(ordinal int) string {
	return fmt.Sprintf("#page-%d", ordinal)
}
