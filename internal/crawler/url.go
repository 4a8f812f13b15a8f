package crawler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL resolves raw against base and reduces it to a canonical form:
// lower-case scheme and host, default ports dropped, fragment removed, query
// pairs sorted by key, and trailing slashes stripped from non-root paths.
// Applying it twice yields the same value.
func NormalizeURL(raw string, base *url.URL) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	host := strings.ToLower(u.Host)
	if u.Scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	}
	if u.Scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	}
	if host == "" {
		return "", fmt.Errorf("parse url: missing host in %q", raw)
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}

	query := sortQuery(u.RawQuery)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String(), nil
}

// sortQuery orders the "&"-separated pairs of a raw query by key, keeping
// values as written. Empty pairs are dropped and a bare key becomes "key=".
// Semicolons are left inside their pair rather than treated as separators.
func sortQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := make([]string, 0, strings.Count(raw, "&")+1)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		if !strings.Contains(pair, "=") {
			pair += "="
		}
		pairs = append(pairs, pair)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return queryKey(pairs[i]) < queryKey(pairs[j])
	})
	return strings.Join(pairs, "&")
}

func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	return key
}

// ParseBaseURL validates the crawl root and returns it normalized.
func ParseBaseURL(raw string) (string, *url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	normalized, err := NormalizeURL(raw, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	return normalized, base, nil
}

var skippedLinkPrefixes = []string{"mailto:", "tel:", "javascript:", "#"}

// SameSiteLinks normalizes hrefs found on a page and keeps only those on the
// base host. Mail, phone, script and fragment-only links are ignored.
func SameSiteLinks(hrefs []string, page, base *url.URL) []string {
	out := make([]string, 0, len(hrefs))
	seen := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || hasSkippedPrefix(href) {
			continue
		}
		normalized, err := NormalizeURL(href, page)
		if err != nil {
			continue
		}
		parsed, err := url.Parse(normalized)
		if err != nil || !sameHost(parsed, base) {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range skippedLinkPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
