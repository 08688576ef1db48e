package config

import (
	"time"

	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
)

// Config holds folio configuration.
// Stored at: ~/.folio/config.yaml
type Config struct {
	Providers    map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults     DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Engine       EngineCfg              `mapstructure:"engine" yaml:"engine"`
	Render       RenderCfg              `mapstructure:"render" yaml:"render"`
	Upload       UploadCfg              `mapstructure:"upload" yaml:"upload"`
	ErrorMarkers []string               `mapstructure:"error_markers" yaml:"error_markers"`
}

// ProviderCfg configures a recognition backend.
type ProviderCfg struct {
	Type      string   `mapstructure:"type" yaml:"type"`             // gemini, openai, openrouter, anthropic, mistral-ocr, tesseract, mock
	Model     string   `mapstructure:"model" yaml:"model"`           // Empty uses the backend default
	APIKey    string   `mapstructure:"api_key" yaml:"api_key"`       // Supports ${ENV_VAR} syntax
	BaseURL   string   `mapstructure:"base_url" yaml:"base_url"`     // Optional endpoint override
	RateLimit float64  `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Languages []string `mapstructure:"languages" yaml:"languages"`   // Tesseract only
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections for new documents.
type DefaultsCfg struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	Translate      bool   `mapstructure:"translate" yaml:"translate"`
	TargetLanguage string `mapstructure:"target_language" yaml:"target_language"`
}

// EngineCfg controls retry and pacing of extraction runs.
type EngineCfg struct {
	MaxAttempts      int  `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffBaseMs    int  `mapstructure:"backoff_base_ms" yaml:"backoff_base_ms"`       // attempt k waits k*base
	InterPageDelayMs int  `mapstructure:"inter_page_delay_ms" yaml:"inter_page_delay_ms"` // 0 disables the delay
	RecordCalls      bool `mapstructure:"record_calls" yaml:"record_calls"`
}

// RenderCfg controls page rasterization.
type RenderCfg struct {
	Backend     string  `mapstructure:"backend" yaml:"backend"` // fitz or pdftoppm
	Scale       float64 `mapstructure:"scale" yaml:"scale"`
	JPEGQuality int     `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
}

// UploadCfg limits accepted source files.
type UploadCfg struct {
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"gemini": {
				Type:      providers.TypeGemini,
				Model:     providers.GeminiDefaultModel,
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 1.0,
				Enabled:   true,
			},
			"openai": {
				Type:      providers.TypeOpenAI,
				Model:     providers.OpenAIDefaultModel,
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 1.0,
				Enabled:   true,
			},
			"openrouter": {
				Type:      providers.TypeOpenRouter,
				Model:     "google/gemini-2.5-pro",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 1.0,
				Enabled:   true,
			},
			"anthropic": {
				Type:      providers.TypeAnthropic,
				Model:     providers.AnthropicDefaultModel,
				APIKey:    "${ANTHROPIC_API_KEY}",
				RateLimit: 1.0,
				Enabled:   true,
			},
			"mistral": {
				Type:      providers.TypeMistralOCR,
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
			"tesseract": {
				Type:      providers.TypeTesseract,
				Languages: providers.TesseractDefaultLanguages,
				Enabled:   false,
			},
			"mock": {
				Type:    providers.TypeMock,
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			Provider:       "gemini",
			Translate:      false,
			TargetLanguage: "English",
		},
		Engine: EngineCfg{
			MaxAttempts:      3,
			BackoffBaseMs:    2000,
			InterPageDelayMs: 1000,
			RecordCalls:      true,
		},
		Render: RenderCfg{
			Backend:     string(pdf.BackendFitz),
			Scale:       pdf.DefaultScale,
			JPEGQuality: pdf.DefaultJPEGQuality,
		},
		Upload: UploadCfg{
			MaxBytes: pdf.DefaultMaxBytes,
		},
	}
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// BackoffBase returns the engine backoff unit.
func (c EngineCfg) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// InterPageDelay returns the pause between pages. A configured 0 disables
// it, which the engine expresses as a negative duration.
func (c EngineCfg) InterPageDelay() time.Duration {
	if c.InterPageDelayMs <= 0 {
		return -1
	}
	return time.Duration(c.InterPageDelayMs) * time.Millisecond
}
