// Package oracle implements the page classifier and translator on top of a
// langchaingo chat model.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Config configures the OpenAI-compatible backend.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Limiter paces oracle calls.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// ErrEmptyResponse is returned when the model produced no usable content.
var ErrEmptyResponse = errors.New("oracle returned an empty response")

// Client implements crawler.Classifier and crawler.Translator.
type Client struct {
	llm         llms.Model
	limiter     Limiter
	chunker     splitter
	callTimeout time.Duration
	logger      *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithCallTimeout bounds every model call. A chunked translation makes one
// call per chunk, each with its own deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// NewOpenAI builds a chat model for cfg. An empty APIKey lets langchaingo
// fall back to OPENAI_API_KEY.
func NewOpenAI(cfg Config) (llms.Model, error) {
	opts := []openai.Option{}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return llm, nil
}

// New wraps llm. limiter may be nil.
func New(llm llms.Model, limiter Limiter, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		llm:     llm,
		limiter: limiter,
		chunker: newSplitter(defaultChunkRunes),
		logger:  logger.Named("oracle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generate runs one system+human exchange and returns the first choice.
func (c *Client) generate(ctx context.Context, operation, system, prompt string, opts ...llms.CallOption) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, operation); err != nil {
			return "", err
		}
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%s: %w", operation, ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", operation, ErrEmptyResponse)
	}
	return content, nil
}
