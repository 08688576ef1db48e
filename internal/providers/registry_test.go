package providers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockRecognizer()

		r.Register("test", mock)

		rec, err := r.Get("test")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec != mock {
			t.Error("got different recognizer than registered")
		}
	})

	t.Run("get nonexistent", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Get("nonexistent"); err == nil {
			t.Error("expected error for nonexistent provider")
		}
		if _, err := r.Get(""); err == nil {
			t.Error("expected error with no default")
		}
	})

	t.Run("from config", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Default: "gemini",
			Providers: map[string]ProviderConfig{
				"gemini":  {Type: TypeGemini, APIKey: "g", Enabled: true},
				"router":  {Type: TypeOpenRouter, APIKey: "o", Model: "google/gemini-2.5-flash", Enabled: true},
				"claude":  {Type: TypeAnthropic, APIKey: "", Enabled: true},
				"mistral": {Type: TypeMistralOCR, APIKey: "m", Enabled: false},
				"offline": {Type: TypeMock, Enabled: true},
			},
		})

		got := r.List()
		want := []string{"gemini", "offline", "router"}
		if len(got) != len(want) {
			t.Fatalf("List() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
			}
		}
		if r.Default() != "gemini" {
			t.Errorf("Default() = %s, want gemini", r.Default())
		}

		rec, err := r.Get("")
		if err != nil {
			t.Fatalf("Get(\"\") error = %v", err)
		}
		if rec.Name() != GeminiName {
			t.Errorf("default recognizer name = %s", rec.Name())
		}

		router, _ := r.Get("router")
		if router.Name() != "router" {
			t.Errorf("openrouter recognizer name = %s", router.Name())
		}
		limited, ok := router.(*Limited)
		if !ok {
			t.Fatalf("expected rate limited recognizer, got %T", router)
		}
		if oc, ok := limited.Unwrap().(*OpenAIClient); !ok || oc.baseURL != OpenRouterBaseURL {
			t.Errorf("openrouter should use the OpenRouter base URL")
		}
	})

	t.Run("single provider becomes default", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"only": {Type: TypeMock, Enabled: true},
			},
		})
		if r.Default() != "only" {
			t.Errorf("Default() = %q, want only", r.Default())
		}
	})

	t.Run("unknown type skipped", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"weird": {Type: "carrier-pigeon", APIKey: "k", Enabled: true},
			},
		})
		if r.Has("weird") {
			t.Error("unknown provider type should not be registered")
		}
	})

	t.Run("reload", func(t *testing.T) {
		cfg := RegistryConfig{
			Providers: map[string]ProviderConfig{
				"a": {Type: TypeMistralOCR, APIKey: "k1", Enabled: true},
				"b": {Type: TypeGemini, APIKey: "k2", Enabled: true},
			},
		}
		r := NewRegistryFromConfig(cfg)
		before, _ := r.Get("a")

		r.Reload(cfg)
		same, _ := r.Get("a")
		if same != before {
			t.Error("unchanged provider should not be recreated")
		}

		cfg.Providers = map[string]ProviderConfig{
			"a": {Type: TypeMistralOCR, APIKey: "k3", Enabled: true},
		}
		r.Reload(cfg)
		after, _ := r.Get("a")
		if after == before {
			t.Error("changed provider should be recreated")
		}
		if r.Has("b") {
			t.Error("removed provider should be unregistered")
		}
	})

	t.Run("manual registrations survive reload", func(t *testing.T) {
		r := NewRegistry()
		r.Register("manual", NewMockRecognizer())
		r.Reload(RegistryConfig{})
		if !r.Has("manual") {
			t.Error("manually registered provider was removed")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Register("p", NewMockRecognizer())
			}()
			go func() {
				defer wg.Done()
				r.List()
				r.Get("p")
			}()
		}
		wg.Wait()
	})
}

func TestMockRecognizer(t *testing.T) {
	t.Run("default response", func(t *testing.T) {
		m := NewMockRecognizer()
		res, err := m.Recognize(context.Background(), &Request{PageNumber: 3, Image: []byte("img")})
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if res.Content != "<p>Page 3: mock page text</p>" {
			t.Errorf("unexpected content: %q", res.Content)
		}
		if m.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", m.RequestCount())
		}
	})

	t.Run("respond hook", func(t *testing.T) {
		m := NewMockRecognizer()
		m.Respond = func(call int, req *Request) (string, error) {
			if call == 1 {
				return "", errors.New("first call fails")
			}
			return "", nil
		}
		if _, err := m.Recognize(context.Background(), &Request{PageNumber: 1}); err == nil {
			t.Error("expected first call to fail")
		}
		res, err := m.Recognize(context.Background(), &Request{PageNumber: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Content != NoContentPlaceholder {
			t.Errorf("empty response should map to placeholder, got %q", res.Content)
		}
		if got := m.Requests(); len(got) != 2 || got[1].PageNumber != 1 {
			t.Errorf("unexpected request log: %+v", got)
		}
	})

	t.Run("fail after", func(t *testing.T) {
		m := NewMockRecognizer()
		m.FailAfter = 1
		m.Recognize(context.Background(), &Request{PageNumber: 1})
		if _, err := m.Recognize(context.Background(), &Request{PageNumber: 2}); err == nil {
			t.Error("expected failure after first request")
		}
	})

	t.Run("latency respects cancellation", func(t *testing.T) {
		m := NewMockRecognizer()
		m.Latency = time.Minute
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := m.Recognize(ctx, &Request{PageNumber: 1}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst", func(t *testing.T) {
		limiter := NewRateLimiter(10)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("try consume", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		if !limiter.TryConsume() {
			t.Error("first TryConsume should succeed")
		}
		if limiter.TryConsume() {
			t.Error("second TryConsume should fail with a burst of one")
		}
	})

	t.Run("status", func(t *testing.T) {
		limiter := NewRateLimiter(60.0)
		status := limiter.Status()
		if status.RatePerSecond != 60.0 {
			t.Errorf("RatePerSecond = %f, want 60.0", status.RatePerSecond)
		}
		if status.TokensAvailable <= 0 {
			t.Error("expected positive tokens available")
		}
	})

	t.Run("record 429", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		limiter.Record429(time.Minute)

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if limiter.TryConsume() {
			t.Error("tokens should be held back after a 429")
		}
		if status.TimeUntilToken < 50*time.Second {
			t.Errorf("TimeUntilToken = %v, want close to a minute", status.TimeUntilToken)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(100)

		var wg sync.WaitGroup
		var errs atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					errs.Add(1)
				}
			}()
		}
		wg.Wait()

		if errs.Load() > 0 {
			t.Errorf("had %d errors", errs.Load())
		}
		if status := limiter.Status(); status.TotalConsumed != 10 {
			t.Errorf("TotalConsumed = %d, want 10", status.TotalConsumed)
		}
	})
}

func TestWithRateLimit(t *testing.T) {
	t.Run("unlimited passthrough", func(t *testing.T) {
		m := NewMockRecognizer()
		m.RPS = 0
		if WithRateLimit(m) != Recognizer(m) {
			t.Error("recognizer without a rate should not be wrapped")
		}
	})

	t.Run("429 drains limiter", func(t *testing.T) {
		m := NewMockRecognizer()
		m.RPS = 5
		m.Respond = func(call int, req *Request) (string, error) {
			return "", &TransportError{Provider: "mock", StatusCode: 429, RetryAfter: time.Minute}
		}
		rec := WithRateLimit(m).(*Limited)
		if _, err := rec.Recognize(context.Background(), &Request{PageNumber: 1}); !IsRateLimited(err) {
			t.Fatalf("expected rate limited error, got %v", err)
		}
		if rec.Limiter().TryConsume() {
			t.Error("limiter should be drained after a 429")
		}
	})

	t.Run("wait honors its own context", func(t *testing.T) {
		m := NewMockRecognizer()
		rec := WithRateLimit(m).(*Limited)
		rec.Limiter().Record429(time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := rec.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Wait() error = %v, want deadline exceeded", err)
		}

		// RecognizeNow skips the limiter entirely.
		if _, err := rec.RecognizeNow(context.Background(), &Request{PageNumber: 1}); err != nil {
			t.Fatalf("RecognizeNow() error = %v", err)
		}
		if m.RequestCount() != 1 {
			t.Errorf("calls = %d, want 1", m.RequestCount())
		}
	})
}

func TestRegistryFromEnvironment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live provider setup in short mode")
	}
	cfg := LoadTestConfig()
	if !cfg.HasAny() {
		t.Skip("no provider API keys in the environment")
	}

	regCfg := cfg.ToRegistryConfig()
	r := NewRegistryFromConfig(regCfg)
	for name := range regCfg.Providers {
		if !r.Has(name) {
			t.Errorf("provider %q not registered", name)
		}
	}
	if r.Default() != regCfg.Default {
		t.Errorf("Default() = %q, want %q", r.Default(), regCfg.Default)
	}
}
