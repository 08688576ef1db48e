package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockName = "mock"

// MockRecognizer is a Recognizer for testing and offline demos.
type MockRecognizer struct {
	ProviderName string
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	RPS          float64

	// Respond, when set, decides the outcome of each call. call is 1-based.
	Respond func(call int, req *Request) (string, error)

	requestCount atomic.Int64

	mu       sync.Mutex
	requests []Request
}

// NewMockRecognizer creates a new mock recognizer with sensible defaults.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{
		ProviderName: MockName,
		ResponseText: "mock page text",
		RPS:          10.0,
	}
}

// Name returns the provider identifier.
func (m *MockRecognizer) Name() string {
	return m.ProviderName
}

// RequestsPerSecond returns the rate limit.
func (m *MockRecognizer) RequestsPerSecond() float64 {
	return m.RPS
}

// Recognize returns canned output after the configured latency.
func (m *MockRecognizer) Recognize(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	count := int(m.requestCount.Add(1))

	m.mu.Lock()
	m.requests = append(m.requests, Request{PageNumber: req.PageNumber, TargetLanguage: req.TargetLanguage})
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ShouldFail {
		return nil, &TransportError{Provider: m.ProviderName, Err: errors.New("mock recognizer configured to fail")}
	}
	if m.FailAfter > 0 && count > m.FailAfter {
		return nil, &TransportError{Provider: m.ProviderName, Err: fmt.Errorf("mock recognizer failed after %d requests", m.FailAfter)}
	}

	var raw string
	if m.Respond != nil {
		var err error
		raw, err = m.Respond(count, req)
		if err != nil {
			return nil, err
		}
	} else {
		raw = fmt.Sprintf("<p>Page %d: %s</p>", req.PageNumber, m.ResponseText)
		if req.TargetLanguage != "" {
			raw = fmt.Sprintf("<p>Page %d (%s): %s</p>", req.PageNumber, req.TargetLanguage, m.ResponseText)
		}
	}

	content, err := Normalize(m.ProviderName, raw)
	if err != nil {
		return nil, err
	}
	return &Result{
		Content:          content,
		Provider:         m.ProviderName,
		Model:            "mock",
		PromptTokens:     len(req.Image) / 4,
		CompletionTokens: len(content) / 4,
		ExecutionTime:    time.Since(start),
	}, nil
}

// RequestCount returns the number of requests made.
func (m *MockRecognizer) RequestCount() int64 {
	return m.requestCount.Load()
}

// Requests returns the page number and target language of every call, in order.
func (m *MockRecognizer) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset resets the request counter and history.
func (m *MockRecognizer) Reset() {
	m.requestCount.Store(0)
	m.mu.Lock()
	m.requests = nil
	m.mu.Unlock()
}

var _ Recognizer = (*MockRecognizer)(nil)
