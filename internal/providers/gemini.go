package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	GeminiDefaultModel = "gemini-2.5-pro"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // Optional (tests)
	Timeout    time.Duration
	RateLimit  float64 // Requests per second (default: 1.0)
	Normalizer *Normalizer
	HTTPClient *http.Client // Optional (tests)
}

// GeminiClient implements Recognizer with the Google Gen AI SDK.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	rateLimit  float64
	normalizer *Normalizer
	httpClient *http.Client

	once   sync.Once
	client *genai.Client
	err    error
}

// NewGeminiClient creates a Gemini client. The SDK client is built on first use.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
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

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		rateLimit:  cfg.RateLimit,
		normalizer: cfg.Normalizer,
		httpClient: httpClient,
	}
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// RequestsPerSecond returns the configured rate limit.
func (c *GeminiClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     c.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: c.httpClient,
		}
		if c.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
		}
		c.client, c.err = genai.NewClient(ctx, cfg)
	})
	return c.client, c.err
}

// Recognize sends the page image inline with the prompt.
func (c *GeminiClient) Recognize(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	client, err := c.sdk(ctx)
	if err != nil {
		return nil, &TransportError{Provider: GeminiName, Err: fmt.Errorf("failed to create client: %w", err)}
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: ImageMIMEType, Data: req.Image}},
		genai.NewPartFromText(Prompt(req.TargetLanguage)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SafetySettings: geminiSafetySettings(),
	})
	if err != nil {
		return nil, mapGeminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &ContentError{Provider: GeminiName, Reason: "prompt blocked: " + string(resp.PromptFeedback.BlockReason)}
	}

	content, err := c.normalizer.Normalize(GeminiName, resp.Text())
	if err != nil {
		return nil, err
	}

	result := &Result{
		Content:       content,
		Provider:      GeminiName,
		Model:         c.model,
		ExecutionTime: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// geminiSafetySettings disables blocking; scanned books routinely trip the
// default filters on historical or medical text.
func geminiSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, cat := range categories {
		settings[i] = &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThresholdBlockNone,
		}
	}
	return settings
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{
			Provider:   GeminiName,
			StatusCode: apiErr.Code,
			Err:        fmt.Errorf("%s", apiErr.Message),
		}
	}
	return &TransportError{Provider: GeminiName, Err: err}
}

var _ Recognizer = (*GeminiClient)(nil)
