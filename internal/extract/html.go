// Package extract turns fetched HTML into a title, readable text and the
// raw hrefs found on the page.
package extract

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

// noiseSelector lists elements whose text never belongs in page content.
const noiseSelector = "script,style,noscript,iframe,template,svg,nav,header,footer,aside"

var blockLevelTags = map[string]struct{}{
	"address":    {},
	"article":    {},
	"blockquote": {},
	"br":         {},
	"dd":         {},
	"div":        {},
	"dl":         {},
	"dt":         {},
	"figcaption": {},
	"figure":     {},
	"form":       {},
	"h1":         {},
	"h2":         {},
	"h3":         {},
	"h4":         {},
	"h5":         {},
	"h6":         {},
	"hr":         {},
	"li":         {},
	"main":       {},
	"ol":         {},
	"p":          {},
	"pre":        {},
	"section":    {},
	"table":      {},
	"td":         {},
	"th":         {},
	"tr":         {},
	"ul":         {},
}

// HTMLExtractor implements crawler.Extractor with goquery.
type HTMLExtractor struct{}

// New returns an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract implements crawler.Extractor. Links are collected before
// navigation chrome is stripped so menus still feed the frontier.
func (HTMLExtractor) Extract(page crawler.RawPage) (crawler.Extraction, error) {
	if isPlainText(page.ContentType) {
		return crawler.Extraction{Text: string(page.Body)}, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return crawler.Extraction{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})

	doc.Find(noiseSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var buf bytes.Buffer
	for _, node := range root.Nodes {
		writeText(&buf, node)
	}

	return crawler.Extraction{
		Title: title,
		Text:  buf.String(),
		Links: links,
	}, nil
}

// writeText renders visible text, starting a new line at block boundaries
// and collapsing whitespace runs inside text nodes.
func writeText(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeInline(buf, n.Data)
		return
	case html.CommentNode:
		return
	}

	_, block := blockLevelTags[n.Data]
	block = block && n.Type == html.ElementNode
	if block {
		newline(buf)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(buf, c)
	}
	if block {
		newline(buf)
	}
}

func writeInline(buf *bytes.Buffer, raw string) {
	text := strings.Join(strings.Fields(raw), " ")
	if text == "" {
		if raw != "" {
			space(buf)
		}
		return
	}
	if unicode.IsSpace(rune(raw[0])) {
		space(buf)
	}
	buf.WriteString(text)
	if unicode.IsSpace(rune(raw[len(raw)-1])) {
		space(buf)
	}
}

func space(buf *bytes.Buffer) {
	if buf.Len() == 0 {
		return
	}
	if last := buf.Bytes()[buf.Len()-1]; last == ' ' || last == '\n' {
		return
	}
	buf.WriteByte(' ')
}

func newline(buf *bytes.Buffer) {
	for buf.Len() > 0 && buf.Bytes()[buf.Len()-1] == ' ' {
		buf.Truncate(buf.Len() - 1)
	}
	if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] == '\n' {
		return
	}
	buf.WriteByte('\n')
}

func isPlainText(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain"
}
