package crawler

import "sort"

// Aggregator files page records into per-language buckets. Records tagged
// mixed are filed into every target language; records with any other
// unrecognized tag (including unknown) are kept for bookkeeping but appear in
// no bucket.
type Aggregator struct {
	buckets map[Language][]PageRecord
	records []PageRecord
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{buckets: make(map[Language][]PageRecord, len(TargetLanguages))}
}

// File adds record to the buckets its language maps to and reports how many
// buckets received it.
func (a *Aggregator) File(record PageRecord) int {
	a.records = append(a.records, record)
	switch record.Language {
	case LanguageEnglish, LanguageFrench, LanguagePortuguese:
		a.buckets[record.Language] = append(a.buckets[record.Language], record)
		return 1
	case LanguageMixed:
		for _, lang := range TargetLanguages {
			a.buckets[lang] = append(a.buckets[lang], record)
		}
		return len(TargetLanguages)
	default:
		return 0
	}
}

// Bucket returns a copy of the records filed under lang.
func (a *Aggregator) Bucket(lang Language) []PageRecord {
	return append([]PageRecord(nil), a.buckets[lang]...)
}

// Records returns every filed record in filing order.
func (a *Aggregator) Records() []PageRecord {
	return append([]PageRecord(nil), a.records...)
}

// Len returns the number of filed records.
func (a *Aggregator) Len() int {
	return len(a.records)
}

// Counts returns the number of records in each target bucket.
func (a *Aggregator) Counts() map[Language]int {
	counts := make(map[Language]int, len(TargetLanguages))
	for _, lang := range TargetLanguages {
		counts[lang] = len(a.buckets[lang])
	}
	return counts
}

// Categories returns the distinct categories in lang's bucket, sorted.
func (a *Aggregator) Categories(lang Language) []string {
	bucket := a.buckets[lang]
	seen := make(map[string]struct{}, len(bucket))
	categories := make([]string, 0, len(bucket))
	for _, rec := range bucket {
		if _, ok := seen[rec.Category]; ok {
			continue
		}
		seen[rec.Category] = struct{}{}
		categories = append(categories, rec.Category)
	}
	sort.Strings(categories)
	return categories
}

// Stats returns page counts and distinct sorted categories per bucket.
func (a *Aggregator) Stats() map[Language]LanguageStats {
	stats := make(map[Language]LanguageStats, len(TargetLanguages))
	for _, lang := range TargetLanguages {
		stats[lang] = LanguageStats{PageCount: len(a.buckets[lang]), Categories: a.Categories(lang)}
	}
	return stats
}

// Restore re-files previously persisted records.
func (a *Aggregator) Restore(records []PageRecord) {
	a.buckets = make(map[Language][]PageRecord, len(TargetLanguages))
	a.records = nil
	for _, rec := range records {
		a.File(rec)
	}
}
