package crawler

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	blankLineRuns  = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spaceTabRuns   = regexp.MustCompile(`[ \t]+`)
	outsideCharset = regexp.MustCompile(`[^\x20-\x7E\n\t\x{00C0}-\x{017F}\x{1E00}-\x{1EFF}]`)

	punctuation = strings.NewReplacer(
		"’", "'",
		"‘", "'",
		"“", `"`,
		"”", `"`,
		"–", "-",
		"—", "--",
		"\u00a0", " ",
	)
)

// CleanText normalizes extracted page text: NFC composition, typographic
// punctuation mapped to ASCII, characters outside printable ASCII and the
// Latin-1/Latin Extended ranges removed, runs of blank lines collapsed to
// one, mixed runs of spaces and tabs collapsed to a single space, then trimmed.
func CleanText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = punctuation.Replace(text)
	text = outsideCharset.ReplaceAllString(text, "")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	text = spaceTabRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TruncateSummary returns the first 200 runes of text, with "..." appended
// when anything was cut.
func TruncateSummary(text string) string {
	return TruncateRunes(text, SummaryRunes, "...")
}

// TruncateRunes cuts s to at most n runes and appends suffix when it did.
func TruncateRunes(s string, n int, suffix string) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + suffix
}
