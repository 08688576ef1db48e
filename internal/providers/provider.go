package providers

import (
	"context"
	"time"
)

// Recognizer turns one rendered page image into an HTML fragment.
// Implementations make one backend call per Recognize and never retry;
// retry policy belongs to the caller.
type Recognizer interface {
	// Name returns the provider identifier (e.g., "gemini", "mistral-ocr").
	Name() string

	// Recognize extracts (and optionally translates) the text on a page.
	// Failures are *TransportError or *ContentError.
	Recognize(ctx context.Context, req *Request) (*Result, error)

	// RequestsPerSecond is the sustained rate the backend tolerates.
	RequestsPerSecond() float64
}

// Request is one page to recognize.
type Request struct {
	// Image is the raw JPEG; adapters base64-encode it themselves.
	Image []byte

	// PageNumber is used for logging and call records only.
	PageNumber int

	// TargetLanguage asks for translation when non-empty.
	TargetLanguage string
}

// Result is a successful recognition.
type Result struct {
	// Content is the normalized HTML fragment.
	Content string `json:"content"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	ExecutionTime    time.Duration `json:"execution_time"`
}

// ImageMIMEType is the content type of rendered pages.
const ImageMIMEType = "image/jpeg"
