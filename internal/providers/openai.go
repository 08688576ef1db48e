package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o"

	// OpenRouterBaseURL routes OpenAI-compatible requests through OpenRouter.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIConfig holds configuration for an OpenAI-compatible vision client.
type OpenAIConfig struct {
	Name       string // Registry name reported by Name (default: "openai")
	APIKey     string
	BaseURL    string // Set for OpenRouter or a local gateway
	Model      string
	MaxTokens  int64
	Timeout    time.Duration
	RateLimit  float64
	Normalizer *Normalizer
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIClient implements Recognizer over the chat completions API.
type OpenAIClient struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int64
	rateLimit  float64
	normalizer *Normalizer
	client     openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.Model == "" {
		cfg.Model = OpenAIDefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 2.0
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
		// Retries are owned by the extraction engine.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		rateLimit:  cfg.RateLimit,
		normalizer: cfg.Normalizer,
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// RequestsPerSecond returns the configured rate limit.
func (c *OpenAIClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// Recognize sends the page as a data URI image part.
func (c *OpenAIClient) Recognize(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	dataURI := "data:" + ImageMIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(Prompt(req.TargetLanguage)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
			}),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &TransportError{Provider: c.name, Err: errors.New("no choices in response")}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, &ContentError{Provider: c.name, Reason: "response blocked by content filter"}
	}

	content, err := c.normalizer.Normalize(c.name, choice.Message.Content)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Result{
		Content:          content,
		Provider:         c.name,
		Model:            model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		ExecutionTime:    time.Since(start),
	}, nil
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		te := &TransportError{
			Provider:   c.name,
			StatusCode: apiErr.StatusCode,
			Err:        fmt.Errorf("%s", apiErr.Message),
		}
		if apiErr.Response != nil {
			te.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return te
	}
	return &TransportError{Provider: c.name, Err: err}
}

var _ Recognizer = (*OpenAIClient)(nil)
