// Package openai adapts the OpenAI chat completions API to pill.TextGenerator.
package openai

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

// Config configures the generation client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
	// Metrics receives token usage; nil disables it.
	Metrics *prometheus.PillMetrics
}

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client implements pill.TextGenerator.
type Client struct {
	completions chatCompletions
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	metrics     *prometheus.PillMetrics
	logger      logging.Logger
}

func NewClient(cfg Config, log logging.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)
	return newClientWithCompletions(&client.Chat.Completions, cfg, log)
}

func newClientWithCompletions(c chatCompletions, cfg Config, log logging.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		completions: c,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		metrics:     cfg.Metrics,
		logger:      log,
	}
}

// Generate sends one system and one user message and returns the first
// choice's content. Rate limits, 5xx and transport failures are retryable.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}

	start := time.Now()
	completion, err := c.completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", errors.New(errors.ErrCodeExplanationFailed, "generation returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New(errors.ErrCodeExplanationFailed, "generation returned empty text")
	}

	prometheus.RecordLLMTokens(c.metrics, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	c.logger.Debug("Generation completed",
		logging.String("model", c.model),
		logging.Int64("prompt_tokens", completion.Usage.PromptTokens),
		logging.Int64("completion_tokens", completion.Usage.CompletionTokens),
		logging.Duration("latency", time.Since(start)))
	return text, nil
}

func classify(err error) error {
	wrapped := errors.Wrap(err, errors.ErrCodeExplanationFailed, "generation request failed")
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		wrapped = wrapped.WithDetail(http.StatusText(apiErr.StatusCode))
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return wrapped.MarkRetryable()
		}
		return wrapped
	}
	if stderrors.Is(err, context.Canceled) {
		return wrapped
	}
	return wrapped.MarkRetryable()
}

//Personal.AI order the ending
