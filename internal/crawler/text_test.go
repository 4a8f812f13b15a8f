package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "L’ambassade — “ouverte” – lundi", `L'ambassade -- "ouverte" - lundi`},
		{"nbsp", "a\u00a0b", "a b"},
		{"accents kept", "Moçambique àéîõü", "Moçambique àéîõü"},
		{"decomposed composed", "Mocambique e\u0301", "Mocambique \u00e9"},
		{"emoji and cjk stripped", "ok 👍 中文", "ok"},
		{"blank lines", "a\n\n\n\n b", "a\n\n b"},
		{"spaces and tabs", "a   b\t\tc", "a b c"},
		{"mixed spaces and tabs", "a \t b\t \tc", "a b c"},
		{"crlf", "a\r\nb", "a\nb"},
		{"trim", "  a  ", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestTruncateSummary(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, TruncateSummary(short))

	long := strings.Repeat("é", 250)
	got := TruncateSummary(long)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abcdef", 3, ""))
	assert.Equal(t, "abcdef", TruncateRunes("abcdef", 0, "..."))
}

func TestRecordBaseName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/", "index"},
		{"https://example.com/consular/visas/", "consular_visas"},
		{"https://example.com/search?q=visa&page=2", "search__q=visa&page=2"},
		{"https://example.com/a:b", "a_b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recordBaseName(tt.raw), tt.raw)
	}

	long := "https://example.com/" + strings.Repeat("x", 300)
	assert.Len(t, []rune(recordBaseName(long)), 200)
}

func TestParseLanguageAndSanitize(t *testing.T) {
	assert.Equal(t, LanguageFrench, ParseLanguage(" French "))
	assert.Equal(t, LanguageMixed, ParseLanguage("MIXED"))
	assert.Equal(t, LanguageUnknown, ParseLanguage("spanish"))

	got := AnalysisResult{
		Keywords:        []string{"a", "", "b", "c", "d", "e", "f"},
		ImportanceScore: 42,
	}.Sanitize()
	assert.Equal(t, LanguageUnknown, got.Language)
	assert.Equal(t, DefaultCategory, got.Category)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got.Keywords)
	assert.Equal(t, MaxImportanceScore, got.ImportanceScore)

	assert.Equal(t, MinImportanceScore, AnalysisResult{ImportanceScore: -3}.Sanitize().ImportanceScore)
	assert.Equal(t, DefaultImportanceScore, AnalysisResult{}.Sanitize().ImportanceScore)
}
