package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

const classifySystem = "You are an expert content analyst. Always respond only with valid JSON."

const classifyPrompt = `Analyze this webpage content and return a JSON object with these fields:
- "language": the primary language, one of "english", "french", "portuguese" or "mixed"
- "category": one of "embassy_info", "consular_services", "about_mozambique", "trade_investment", "tourism", "gallery", "news", "other"
- "summary": a brief 2-3 sentence summary
- "keywords": up to 5 key terms
- "importance_score": an integer from 1 to 10 rating how valuable the content is

URL: %s
Title: %s

Content:
%s`

// classification mirrors the model's JSON. Scores arrive as numbers or
// strings depending on the model.
type classification struct {
	Language        string          `json:"language"`
	Category        string          `json:"category"`
	Summary         string          `json:"summary"`
	Keywords        []string        `json:"keywords"`
	ImportanceScore json.RawMessage `json:"importance_score"`
}

// Classify implements crawler.Classifier.
func (c *Client) Classify(ctx context.Context, url, title, excerpt string) (crawler.AnalysisResult, error) {
	prompt := fmt.Sprintf(classifyPrompt, url, title, excerpt)
	content, err := c.generate(ctx, "classify", classifySystem, prompt,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(500),
	)
	if err != nil {
		return crawler.AnalysisResult{}, err
	}
	result, err := parseClassification(content)
	if err != nil {
		c.logger.Debug("unparseable classification", zap.String("url", url), zap.String("content", content))
		return crawler.AnalysisResult{}, err
	}
	return result, nil
}

func parseClassification(content string) (crawler.AnalysisResult, error) {
	var raw classification
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return crawler.AnalysisResult{}, fmt.Errorf("decode classification: %w", err)
	}
	keywords := make([]string, 0, len(raw.Keywords))
	for _, kw := range raw.Keywords {
		keywords = append(keywords, strings.TrimSpace(kw))
	}
	result := crawler.AnalysisResult{
		Language:        crawler.ParseLanguage(raw.Language),
		Category:        strings.ToLower(strings.TrimSpace(raw.Category)),
		Summary:         strings.TrimSpace(raw.Summary),
		Keywords:        keywords,
		ImportanceScore: parseScore(raw.ImportanceScore),
	}
	return result.Sanitize(), nil
}

// parseScore accepts 7, 7.6 or "7". Anything else yields 0, which Sanitize
// maps to the default score.
func parseScore(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(math.Round(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(math.Round(f))
		}
	}
	return 0
}

// stripFences removes a surrounding markdown code fence, which chat models
// add even when asked for bare JSON.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
