// Package render turns assembled documents into output artifacts.
package render

import (
	"strings"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

const timeLayout = "2006-01-02 15:04:05"

var nativeNames = map[crawler.Language]string{
	crawler.LanguageEnglish:    "English",
	crawler.LanguageFrench:     "Français",
	crawler.LanguagePortuguese: "Português",
}

// languageName returns the endonym for lang, e.g. "Français".
func languageName(lang crawler.Language) string {
	if name, ok := nativeNames[lang]; ok {
		return name
	}
	return lang.Title()
}

// categoryLabel turns "consular_services" into "Consular Services".
func categoryLabel(category string) string {
	if category == "" {
		category = crawler.DefaultCategory
	}
	return crawler.TitleCase(strings.ReplaceAll(category, "_", " "))
}

func keywordList(keywords []string) string {
	return strings.Join(keywords, ", ")
}

func summaryOrDefault(summary string) string {
	if strings.TrimSpace(summary) == "" {
		return "No summary available"
	}
	return summary
}

// All returns the renderers enabled by default.
func All() []crawler.Renderer {
	return []crawler.Renderer{Text{}, Markdown{}, PDF{}}
}
