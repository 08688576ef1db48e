package providers

import (
	"os"
)

// TestConfig holds provider API keys loaded from environment variables.
// Integration tests use it to decide which live backends to exercise.
type TestConfig struct {
	GeminiAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	MistralAPIKey    string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		MistralAPIKey:    os.Getenv("MISTRAL_API_KEY"),
	}
}

// HasAny returns true if any hosted provider is configured.
func (c TestConfig) HasAny() bool {
	return len(c.ToRegistryConfig().Providers) > 0
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{Providers: make(map[string]ProviderConfig)}

	add := func(name, typ, key string) {
		if key == "" {
			return
		}
		cfg.Providers[name] = ProviderConfig{Type: typ, APIKey: key, Enabled: true}
		if cfg.Default == "" {
			cfg.Default = name
		}
	}
	add(TypeGemini, TypeGemini, c.GeminiAPIKey)
	add(TypeOpenAI, TypeOpenAI, c.OpenAIAPIKey)
	add(TypeOpenRouter, TypeOpenRouter, c.OpenRouterAPIKey)
	add(TypeAnthropic, TypeAnthropic, c.AnthropicAPIKey)
	add(TypeMistralOCR, TypeMistralOCR, c.MistralAPIKey)

	return cfg
}
