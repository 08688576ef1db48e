//go:build tesseract

package providers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TesseractClient runs recognition locally with libtesseract. It transcribes
// only; requests with a target language are rejected.
type TesseractClient struct {
	languages  []string
	normalizer *Normalizer

	// gosseract clients are not safe for concurrent use.
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractClient creates a local OCR client.
func NewTesseractClient(cfg TesseractConfig) (*TesseractClient, error) {
	if len(cfg.Languages) == 0 {
		cfg.Languages = TesseractDefaultLanguages
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = defaultNormalizer
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set tesseract languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return &TesseractClient{
		languages:  cfg.Languages,
		normalizer: cfg.Normalizer,
		client:     client,
	}, nil
}

// Name returns the provider identifier.
func (c *TesseractClient) Name() string {
	return TesseractName
}

// RequestsPerSecond is unbounded for a local engine.
func (c *TesseractClient) RequestsPerSecond() float64 {
	return 0
}

// Recognize transcribes the page and wraps each text block in a paragraph.
func (c *TesseractClient) Recognize(ctx context.Context, req *Request) (*Result, error) {
	if req.TargetLanguage != "" {
		return nil, &ContentError{Provider: TesseractName, Reason: "translation is not supported by this provider", Permanent: true}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetImageFromBytes(req.Image); err != nil {
		return nil, &ContentError{Provider: TesseractName, Reason: fmt.Sprintf("failed to load image: %v", err)}
	}
	text, err := c.client.Text()
	if err != nil {
		return nil, &ContentError{Provider: TesseractName, Reason: fmt.Sprintf("recognition failed: %v", err)}
	}

	content, err := c.normalizer.Normalize(TesseractName, paragraphs(text))
	if err != nil {
		return nil, err
	}
	return &Result{
		Content:       content,
		Provider:      TesseractName,
		Model:         "tesseract " + gosseract.Version(),
		ExecutionTime: time.Since(start),
	}, nil
}

// Close releases the native client.
func (c *TesseractClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}

func paragraphs(text string) string {
	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

var _ Recognizer = (*TesseractClient)(nil)
