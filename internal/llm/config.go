package llm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config is the "llm" section of findata's configuration.
type Config struct {
	// Provider is one of the Provider* names. Empty lets DiscoverConfig
	// choose from the vendor key variables.
	Provider string `koanf:"provider" validate:"omitempty,oneof=anthropic openai gemini openrouter mock"`

	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	OpenRouter OpenRouterConfig `koanf:"openrouter"`
	Retry      RetryConfig      `koanf:"retry"`

	// Timeout bounds one Generate call, retries included. Zero disables it.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// VendorConfig is what every vendor needs: a key, a model name or alias,
// and optionally a different endpoint.
type VendorConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type (
	AnthropicConfig  = VendorConfig
	OpenAIConfig     = VendorConfig
	GeminiConfig     = VendorConfig
	OpenRouterConfig = VendorConfig
)

type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	InitialWait time.Duration `koanf:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait"`
	Multiplier  float64       `koanf:"multiplier" validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{
		Anthropic:  VendorConfig{Model: "claude-haiku"},
		OpenAI:     VendorConfig{Model: "gpt-4o-mini"},
		Gemini:     VendorConfig{Model: "gemini-flash"},
		OpenRouter: VendorConfig{Model: "google/gemini-2.0-flash-exp", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 2 * time.Minute,
	}
}

// discoveryOrder is the order vendor key variables are probed in.
var discoveryOrder = []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOpenRouter}

// vendor returns the section for a vendor provider, or nil for mock and
// unknown names.
func (c *Config) vendor(name string) *VendorConfig {
	switch name {
	case ProviderAnthropic:
		return &c.Anthropic
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGemini:
		return &c.Gemini
	case ProviderOpenRouter:
		return &c.OpenRouter
	}
	return nil
}

// DiscoverConfig selects the first vendor whose standard key variable
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...) is set. Everything else comes
// from base. It reports false, returning base, when none is set.
func DiscoverConfig(base Config) (Config, bool) {
	for _, name := range discoveryOrder {
		key := os.Getenv(strings.ToUpper(name) + "_API_KEY")
		if key == "" {
			continue
		}
		cfg := base
		cfg.Provider = name
		cfg.vendor(name).APIKey = key
		return cfg, true
	}
	return base, false
}

// Validate checks that a provider is selected and has its key.
func (c Config) Validate() error {
	switch {
	case c.Provider == "":
		return errors.New("no LLM provider configured: set FINDATA_LLM__PROVIDER or a vendor API key")
	case c.Provider == ProviderMock:
		return nil
	}
	v := c.vendor(c.Provider)
	if v == nil {
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if v.APIKey == "" {
		return fmt.Errorf("FINDATA_LLM__%s__API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}
