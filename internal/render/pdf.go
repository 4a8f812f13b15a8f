package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 6.0
)

// PDF renders an A4 document: a title page with run metadata, a linked table
// of contents, then one page per section. Core fonts are used, so text is
// mapped to cp1252; runes outside it are dropped by the translator.
type PDF struct{}

// Extension implements crawler.Renderer.
func (PDF) Extension() string { return "pdf" }

// ContentType implements crawler.Renderer.
func (PDF) ContentType() string { return "application/pdf" }

// Render implements crawler.Renderer.
func (PDF) Render(doc *crawler.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render pdf: nil document")
	}
	pdf := buildPDF(doc)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func buildPDF(doc *crawler.Document) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCreator("webscrap", true)

	name := languageName(doc.Language)
	title := fmt.Sprintf("%s - %s", doc.Title, name)
	pdf.SetTitle(title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	links := make(map[int]int, len(doc.Sections))
	for _, s := range doc.Sections {
		links[s.Ordinal] = pdf.AddLink()
	}

	pdf.AddPage()
	pdf.SetFont(pdfFont, "B", 22)
	pdf.MultiCell(0, 10, tr(title), "", "C", false)
	pdf.Ln(8)
	pdf.SetFont(pdfFont, "", 12)
	for _, row := range [][2]string{
		{"Generated", doc.GeneratedAt.Format(timeLayout)},
		{"Total pages", fmt.Sprintf("%d", len(doc.Sections))},
		{"Language", name},
		{"Source", doc.SourceURL},
	} {
		pdf.CellFormat(40, pdfLineHeight+2, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.MultiCell(0, pdfLineHeight+2, tr(row[1]), "", "L", false)
	}

	pdf.AddPage()
	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, tr("Table of Contents"), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont(pdfFont, "", 11)
	for _, entry := range doc.Contents {
		line := fmt.Sprintf("%d. %s (%s) [Score: %d]",
			entry.Ordinal, entry.Title, categoryLabel(entry.Category), entry.ImportanceScore)
		pdf.CellFormat(0, pdfLineHeight+1, tr(line), "", 1, "L", false, links[entry.Ordinal], "")
	}

	for _, s := range doc.Sections {
		pdf.AddPage()
		if link, ok := links[s.Ordinal]; ok {
			pdf.SetLink(link, -1, -1)
		}
		pdf.SetFont(pdfFont, "B", 15)
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("Page %d: %s", s.Ordinal, s.Title)), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont(pdfFont, "", 9)
		meta := []string{
			"URL: " + s.URL,
			"Category: " + categoryLabel(s.Category),
			"Original Language: " + s.OriginalLanguage.Title(),
			fmt.Sprintf("Importance Score: %d/10", s.ImportanceScore),
			"Keywords: " + keywordList(s.Keywords),
			"Scraped: " + s.ScrapedAt.Format(timeLayout),
		}
		if s.Translated {
			meta = append(meta, "Translated to "+name)
		}
		for _, line := range meta {
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
		pdf.Ln(3)

		pdf.SetFont(pdfFont, "I", 10)
		pdf.MultiCell(0, pdfLineHeight, tr(summaryOrDefault(s.Summary)), "", "L", false)
		pdf.Ln(3)

		pdf.SetFont(pdfFont, "", 11)
		for _, paragraph := range strings.Split(s.Body, "\n\n") {
			if p := strings.TrimSpace(paragraph); p != "" {
				pdf.MultiCell(0, pdfLineHeight, tr(p), "", "J", false)
				pdf.Ln(2)
			}
		}
	}
	return pdf
}
