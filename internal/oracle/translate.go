package oracle

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

// defaultChunkRunes keeps each request well inside the response token cap.
const defaultChunkRunes = 4000

const translateSystem = "You are a professional translator. Translate accurately and preserve the original formatting."

const translatePrompt = `Translate the following text to %s. Preserve paragraphs and line breaks.
If the text is already in %s, return it unchanged. Return only the translation.

Text:
%s`

type splitter interface {
	SplitText(text string) ([]string, error)
}

func newSplitter(chunkRunes int) splitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkRunes),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " "}),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
}

// Translate implements crawler.Translator. Long bodies are split on
// paragraph boundaries and translated chunk by chunk.
func (c *Client) Translate(ctx context.Context, text string, target crawler.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	chunks := []string{text}
	if utf8.RuneCountInString(text) > defaultChunkRunes {
		split, err := c.chunker.SplitText(text)
		if err != nil {
			return "", fmt.Errorf("split text: %w", err)
		}
		if len(split) > 0 {
			chunks = split
		}
	}

	language := target.Title()
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		translated, err := c.generate(ctx, "translate", translateSystem,
			fmt.Sprintf(translatePrompt, language, language, chunk),
			llms.WithTemperature(0.1),
			llms.WithMaxTokens(2000),
		)
		if err != nil {
			return "", err
		}
		out = append(out, translated)
	}
	return strings.Join(out, "\n\n"), nil
}
