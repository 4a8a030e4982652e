// Package config loads findata settings from defaults, an optional YAML
// file and FINDATA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/abhisek/findata/internal/llm"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "FINDATA_"

	// DefaultFile is read from the working directory when no path is given.
	DefaultFile = "findata.yaml"
)

// Config is the full application configuration.
type Config struct {
	LogLevel  string          `koanf:"log_level" validate:"oneof=trace debug info warn warning error"`
	DB        string          `koanf:"db"`
	LLM       llm.Config      `koanf:"llm"`
	Generator GeneratorConfig `koanf:"generator"`
	Chunker   ChunkerConfig   `koanf:"chunker"`
	EDGAR     EDGARConfig     `koanf:"edgar"`
	S3        S3Config        `koanf:"s3"`
}

// GeneratorConfig tunes the batch generation engine and its LLM backend.
type GeneratorConfig struct {
	MaxTokens   int     `koanf:"max_tokens" validate:"gte=1"`
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=2"`
	Concurrency int     `koanf:"concurrency" validate:"gte=1"`

	// Delay is a fixed pause before every chunk call.
	Delay time.Duration `koanf:"delay" validate:"gte=0"`
	// RateLimit caps chunk calls per second. Zero disables it.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	Burst     int     `koanf:"burst" validate:"gte=0"`

	SkipZeroQuota   bool `koanf:"skip_zero_quota"`
	GroundedContext bool `koanf:"grounded_context"`
}

// ChunkerConfig holds splitter sizes for free text and filing items.
type ChunkerConfig struct {
	TextSize      int `koanf:"text_size" validate:"gte=1"`
	TextOverlap   int `koanf:"text_overlap" validate:"gte=0,ltfield=TextSize"`
	FilingSize    int `koanf:"filing_size" validate:"gte=1"`
	FilingOverlap int `koanf:"filing_overlap" validate:"gte=0,ltfield=FilingSize"`
}

// EDGARConfig configures SEC EDGAR access. Identity is sent as the
// User-Agent and should contain a contact email.
type EDGARConfig struct {
	Identity         string `koanf:"identity"`
	BaseURL          string `koanf:"base_url" validate:"url"`
	DataURL          string `koanf:"data_url" validate:"url"`
	MinSectionLength int    `koanf:"min_section_length" validate:"gte=0"`
}

// S3Config configures access to s3:// document references. Empty keys
// fall back to the default AWS credential chain.
type S3Config struct {
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint" validate:"omitempty,url"`
	AccessKey    string `koanf:"access_key"`
	SecretKey    string `koanf:"secret_key" validate:"required_with=AccessKey"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		LLM:      llm.DefaultConfig(),
		Generator: GeneratorConfig{
			MaxTokens:   4096,
			Temperature: 0.2,
			Concurrency: 1,
			Burst:       1,
		},
		Chunker: ChunkerConfig{
			TextSize:      1024,
			TextOverlap:   100,
			FilingSize:    8192,
			FilingOverlap: 128,
		},
		EDGAR: EDGARConfig{
			BaseURL:          "https://www.sec.gov",
			DataURL:          "https://data.sec.gov",
			MinSectionLength: 200,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// DefaultFile is used if present. An explicit path that does not exist is
// an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// FINDATA_LLM__OPENAI__API_KEY -> llm.openai.api_key
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM, _ = llm.DiscoverConfig(cfg.LLM)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

func validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:")
	for _, e := range errs {
		fmt.Fprintf(&sb, "\n  - %s: failed '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return errors.New(sb.String())
}

// UserAgent returns Identity, or EDGAR_IDENTITY from the environment.
func (c EDGARConfig) UserAgent() string {
	if c.Identity != "" {
		return c.Identity
	}
	if v := os.Getenv("EDGAR_IDENTITY"); v != "" {
		return v
	}
	return ""
}
