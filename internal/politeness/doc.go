// Package politeness enforces crawl etiquette for a single site: robots.txt
// rules loaded once at startup, declared content-type and size limits, and
// an adaptive delay between requests.
package politeness
