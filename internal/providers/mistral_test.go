package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMistralOCRClient_Recognize(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if req.Document.ImageURL == nil || !strings.HasPrefix(req.Document.ImageURL.URL, "data:image/jpeg;base64,") {
				t.Errorf("unexpected document: %+v", req.Document)
			}

			resp := mistralOCRResponse{
				Model: "mistral-ocr-latest",
				Pages: []mistralOCRPage{
					{Index: 0, Markdown: "# Chapter 1\n\nThis is the extracted text."},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Recognize(context.Background(), &Request{Image: []byte("fake image data"), PageNumber: 1})
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		want := "<h1>Chapter 1</h1>\n<p>This is the extracted text.</p>"
		if result.Content != want {
			t.Errorf("unexpected content: %q", result.Content)
		}
		if result.Provider != MistralOCRName {
			t.Errorf("unexpected provider: %s", result.Provider)
		}
		if result.Model != "mistral-ocr-latest" {
			t.Errorf("unexpected model: %s", result.Model)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Recognize(context.Background(), &Request{Image: []byte("x"), PageNumber: 1})

		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected TransportError, got %v", err)
		}
		if !te.RateLimited() || !IsRateLimited(err) {
			t.Errorf("expected rate limited error, got status %d", te.StatusCode)
		}
		if te.RetryAfter != 3*time.Second {
			t.Errorf("unexpected retry after: %v", te.RetryAfter)
		}
		if !strings.Contains(err.Error(), "slow down") {
			t.Errorf("unexpected error message: %v", err)
		}
	})

	t.Run("empty pages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"model":"mistral-ocr-latest","pages":[]}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})
		if _, err := client.Recognize(context.Background(), &Request{Image: []byte("x")}); err == nil {
			t.Error("expected error for empty pages")
		}
	})

	t.Run("translation rejected", func(t *testing.T) {
		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:0"})
		_, err := client.Recognize(context.Background(), &Request{Image: []byte("x"), TargetLanguage: "English"})
		var ce *ContentError
		if !errors.As(err, &ce) {
			t.Errorf("expected ContentError, got %v", err)
		}
		if !IsPermanent(err) {
			t.Errorf("translation rejection should not be retried: %v", err)
		}
	})
}

func TestMistralOCRClient_Config(t *testing.T) {
	client := NewMistralOCRClient(MistralOCRConfig{APIKey: "k"})
	if client.Name() != MistralOCRName {
		t.Errorf("unexpected name: %s", client.Name())
	}
	if client.RequestsPerSecond() != 6.0 {
		t.Errorf("unexpected rate limit: %f", client.RequestsPerSecond())
	}
	if client.baseURL != MistralOCRBaseURL {
		t.Errorf("unexpected base URL: %s", client.baseURL)
	}
}
