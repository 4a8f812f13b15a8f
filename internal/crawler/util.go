package crawler

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

const maxRecordNameRunes = 200

func normalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// TitleCase capitalizes every whitespace-separated word, e.g. "local news" ->
// "Local News".
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

// recordBaseName derives the per-page file stem from a URL: the path without
// surrounding slashes ("index" for root), unsafe characters replaced with
// underscores, the query appended after "__", capped at 200 runes.
func recordBaseName(raw string) string {
	name := "index"
	query := ""
	if u, err := url.Parse(raw); err == nil {
		if p := strings.Trim(u.Path, "/"); p != "" {
			name = p
		}
		query = u.RawQuery
	}
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	if query != "" {
		name += "__" + invalidFilenameChars.ReplaceAllString(query, "_")
	}
	if utf8.RuneCountInString(name) > maxRecordNameRunes {
		name = string([]rune(name)[:maxRecordNameRunes])
	}
	return name
}

func sameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}
