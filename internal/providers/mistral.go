package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  float64 // Requests per second (default: 6.0)
	Normalizer *Normalizer
}

// MistralOCRClient implements Recognizer using the Mistral OCR API.
// The API returns markdown, which is rendered to HTML before normalization.
// It transcribes only; translation requests are rejected.
type MistralOCRClient struct {
	apiKey     string
	baseURL    string
	model      string
	rateLimit  float64
	normalizer *Normalizer
	markdown   goldmark.Markdown
	client     *http.Client
}

// NewMistralOCRClient creates a new Mistral OCR client.
func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6.0
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = defaultNormalizer
	}

	return &MistralOCRClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		rateLimit:  cfg.RateLimit,
		normalizer: cfg.Normalizer,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Mistral emits inline HTML for complex tables.
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// RequestsPerSecond returns the rate limit for Mistral OCR.
func (c *MistralOCRClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// Recognize extracts the text of one page image.
func (c *MistralOCRClient) Recognize(ctx context.Context, req *Request) (*Result, error) {
	if req.TargetLanguage != "" {
		return nil, &ContentError{Provider: MistralOCRName, Reason: "translation is not supported by this provider", Permanent: true}
	}
	start := time.Now()

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type: "image_url",
			ImageURL: &mistralImageURL{
				URL: "data:" + ImageMIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
			},
		},
	}

	resp, err := c.doRequest(ctx, "/ocr", reqBody)
	if err != nil {
		return nil, err
	}
	if len(resp.Pages) == 0 {
		return nil, &TransportError{Provider: MistralOCRName, Err: errors.New("no pages in OCR response")}
	}

	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(resp.Pages[0].Markdown), &buf); err != nil {
		return nil, &ContentError{Provider: MistralOCRName, Reason: fmt.Sprintf("failed to render markdown: %v", err)}
	}

	content, err := c.normalizer.Normalize(MistralOCRName, buf.String())
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Result{
		Content:       content,
		Provider:      MistralOCRName,
		Model:         model,
		ExecutionTime: time.Since(start),
	}, nil
}

// doRequest makes an HTTP request to Mistral API.
func (c *MistralOCRClient) doRequest(ctx context.Context, path string, body any) (*mistralOCRResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: MistralOCRName, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: MistralOCRName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		te := &TransportError{
			Provider:   MistralOCRName,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New(strings.TrimSpace(string(respBody))),
		}
		var errResp mistralErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			te.Err = errors.New(errResp.Error.Message)
		}
		return nil, te
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, &TransportError{Provider: MistralOCRName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	return &ocrResp, nil
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type     string           `json:"type"` // "image_url" or "document_url"
	ImageURL *mistralImageURL `json:"image_url,omitempty"`
}

type mistralImageURL struct {
	URL string `json:"url"`
}

type mistralOCRResponse struct {
	Model string           `json:"model"`
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

var _ Recognizer = (*MistralOCRClient)(nil)
