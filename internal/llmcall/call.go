// Package llmcall records every recognition request for traceability.
// Each call is stored with its page, provider, token usage and outcome.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/folio/internal/providers"
)

// Call represents a recorded recognition call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	SessionID  string `json:"session_id,omitempty"`
	PageNumber int    `json:"page_num"`
	Attempt    int    `json:"attempt"`

	// Model info
	Provider       string `json:"provider"`
	Model          string `json:"model,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording a call.
type RecordOptions struct {
	SessionID      string
	PageNumber     int
	Attempt        int
	Provider       string // Used when the call failed and there is no result
	TargetLanguage string
	Latency        time.Duration
}

// FromResult creates a Call from the outcome of one Recognize.
// Either result or err is expected to be non-nil.
func FromResult(result *providers.Result, err error, opts RecordOptions) *Call {
	call := &Call{
		ID:             uuid.New().String(),
		Timestamp:      time.Now(),
		LatencyMs:      int(opts.Latency.Milliseconds()),
		SessionID:      opts.SessionID,
		PageNumber:     opts.PageNumber,
		Attempt:        opts.Attempt,
		Provider:       opts.Provider,
		TargetLanguage: opts.TargetLanguage,
	}

	if err != nil {
		call.Error = err.Error()
		return call
	}
	if result == nil {
		call.Error = "no result"
		return call
	}

	call.Success = true
	call.Provider = result.Provider
	call.Model = result.Model
	call.InputTokens = result.PromptTokens
	call.OutputTokens = result.CompletionTokens
	call.Response = result.Content
	return call
}
