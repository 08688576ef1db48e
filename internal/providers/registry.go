package providers

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Provider types accepted in configuration.
const (
	TypeGemini     = "gemini"
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
	TypeAnthropic  = "anthropic"
	TypeMistralOCR = "mistral-ocr"
	TypeTesseract  = "tesseract"
	TypeMock       = "mock"
)

// Registry holds the configured recognizers.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]registryEntry
	defaultName string
	logger      *slog.Logger
}

type registryEntry struct {
	cfg ProviderConfig
	rec Recognizer
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	// Providers maps provider names to their config.
	Providers map[string]ProviderConfig

	// Default is the provider used when a caller does not name one.
	Default string

	// ErrorMarkers overrides DefaultErrorMarkers when non-nil.
	ErrorMarkers []string
}

// ProviderConfig matches config.ProviderCfg with resolved API key.
type ProviderConfig struct {
	Type      string   // See the Type* constants
	Model     string   // Model name; empty uses the backend default
	APIKey    string   // Resolved API key
	BaseURL   string   // Optional endpoint override
	RateLimit float64  // Requests per second
	Languages []string // Tesseract traineddata names
	Enabled   bool
}

func (c ProviderConfig) equal(o ProviderConfig) bool {
	return c.Type == o.Type && c.Model == o.Model && c.APIKey == o.APIKey &&
		c.BaseURL == o.BaseURL && c.RateLimit == o.RateLimit &&
		slices.Equal(c.Languages, o.Languages) && c.Enabled == o.Enabled
}

// needsKey reports whether the provider type talks to a hosted API.
func (c ProviderConfig) needsKey() bool {
	return c.Type != TypeMock && c.Type != TypeTesseract
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
		logger:  slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a recognizer by name, replacing any existing one.
// The recognizer is used as given, without rate limiting.
func (r *Registry) Register(name string, rec Recognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{rec: rec}
	if r.defaultName == "" {
		r.defaultName = name
	}
	if r.logger != nil {
		r.logger.Info("registered provider", "name", name)
	}
}

// Get returns a recognizer by name. An empty name returns the default.
func (r *Registry) Get(name string) (Recognizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	if name == "" {
		return nil, fmt.Errorf("no provider configured")
	}
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return e.rec, nil
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Default returns the name of the default provider. Without a configured
// default, a sole configured provider or the first registered one is used.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// SetDefault changes the default provider.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("provider not found: %s", name)
	}
	r.defaultName = name
	return nil
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-created.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalizer := NewNormalizer(cfg.ErrorMarkers)
	want := make(map[string]bool)

	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled || (provCfg.needsKey() && provCfg.APIKey == "") {
			continue
		}
		want[name] = true

		existing, hasExisting := r.entries[name]
		if hasExisting && existing.cfg.equal(provCfg) {
			continue
		}
		rec, err := createRecognizer(name, provCfg, normalizer)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("failed to create provider", "name", name, "type", provCfg.Type, "error", err)
			}
			if !hasExisting {
				delete(want, name)
			}
			continue
		}
		if hasExisting {
			closeRecognizer(existing.rec)
		}
		r.entries[name] = registryEntry{cfg: provCfg, rec: WithRateLimit(rec)}
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated provider", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered provider", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Entries added through Register have no config and survive reloads.
	for name, e := range r.entries {
		if !want[name] && e.cfg.Type != "" {
			closeRecognizer(e.rec)
			delete(r.entries, name)
			if r.logger != nil {
				r.logger.Info("unregistered provider", "name", name)
			}
		}
	}

	r.defaultName = ""
	if _, ok := r.entries[cfg.Default]; ok {
		r.defaultName = cfg.Default
	} else if len(r.entries) == 1 {
		for name := range r.entries {
			r.defaultName = name
		}
	}
}

// createRecognizer creates a recognizer based on provider type.
func createRecognizer(name string, cfg ProviderConfig, normalizer *Normalizer) (Recognizer, error) {
	switch cfg.Type {
	case TypeGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			RateLimit:  cfg.RateLimit,
			Normalizer: normalizer,
		}), nil
	case TypeOpenAI, TypeOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Type == TypeOpenRouter {
			baseURL = OpenRouterBaseURL
		}
		return NewOpenAIClient(OpenAIConfig{
			Name:       name,
			APIKey:     cfg.APIKey,
			BaseURL:    baseURL,
			Model:      cfg.Model,
			RateLimit:  cfg.RateLimit,
			Normalizer: normalizer,
		}), nil
	case TypeAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			RateLimit:  cfg.RateLimit,
			Normalizer: normalizer,
		}), nil
	case TypeMistralOCR:
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			RateLimit:  cfg.RateLimit,
			Normalizer: normalizer,
		}), nil
	case TypeTesseract:
		return NewTesseractClient(TesseractConfig{
			Languages:  cfg.Languages,
			Normalizer: normalizer,
		})
	case TypeMock:
		m := NewMockRecognizer()
		m.ProviderName = name
		if cfg.RateLimit > 0 {
			m.RPS = cfg.RateLimit
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}

func closeRecognizer(rec Recognizer) {
	if l, ok := rec.(*Limited); ok {
		rec = l.Unwrap()
	}
	if c, ok := rec.(io.Closer); ok {
		c.Close()
	}
}
