package llm

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider is the OpenAI client pointed at OpenRouter. Model
// names are "vendor/model" and are sent as given.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter: api_key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenRouterBaseURL
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	conf.HTTPClient = &http.Client{Transport: attribution{next: http.DefaultTransport}}
	return &OpenRouterProvider{OpenAIProvider: newChatCompletions(conf, base, cfg.Model)}, nil
}

// attribution adds the headers OpenRouter uses to name the calling app.
type attribution struct {
	next http.RoundTripper
}

func (a attribution) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Title", "findata")
	return a.next.RoundTrip(r)
}
