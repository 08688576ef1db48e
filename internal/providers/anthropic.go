package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	AnthropicName         = "anthropic"
	AnthropicDefaultModel = "claude-sonnet-4-5"
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string // Optional (tests)
	Model      string
	MaxTokens  int64
	Timeout    time.Duration
	RateLimit  float64
	Normalizer *Normalizer
	HTTPClient *http.Client // Optional (tests)
}

// AnthropicClient implements Recognizer with the Messages API.
type AnthropicClient struct {
	model      string
	maxTokens  int64
	rateLimit  float64
	normalizer *Normalizer
	client     anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = AnthropicDefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1.0
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = defaultNormalizer
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		rateLimit:  cfg.RateLimit,
		normalizer: cfg.Normalizer,
		client:     anthropic.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string {
	return AnthropicName
}

// RequestsPerSecond returns the configured rate limit.
func (c *AnthropicClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// Recognize sends the page as a base64 image block followed by the prompt.
func (c *AnthropicClient) Recognize(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
					Data:      base64.StdEncoding.EncodeToString(req.Image),
					MediaType: anthropic.Base64ImageSourceMediaType(ImageMIMEType),
				}),
				anthropic.NewTextBlock(Prompt(req.TargetLanguage)),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			te := &TransportError{Provider: AnthropicName, StatusCode: apiErr.StatusCode, Err: err}
			if apiErr.Response != nil {
				te.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return nil, te
		}
		return nil, &TransportError{Provider: AnthropicName, Err: err}
	}

	if msg.StopReason == anthropic.StopReasonRefusal {
		return nil, &ContentError{Provider: AnthropicName, Reason: "model refused the request"}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	content, err := c.normalizer.Normalize(AnthropicName, text.String())
	if err != nil {
		return nil, err
	}

	return &Result{
		Content:          content,
		Provider:         AnthropicName,
		Model:            string(msg.Model),
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		ExecutionTime:    time.Since(start),
	}, nil
}

var _ Recognizer = (*AnthropicClient)(nil)
