package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/findata/internal/store"
	"github.com/sirupsen/logrus"
)

// NewProvider builds the configured provider and layers timeout, retry
// and audit logging on top, outermost first. A nil repo skips the audit
// table.
func NewProvider(ctx context.Context, cfg Config, repo store.EventRepo, log logrus.FieldLogger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		p   Provider
		err error
	)
	v := cfg.vendor(cfg.Provider)
	switch cfg.Provider {
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(*v)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(*v)
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, *v)
	case ProviderOpenRouter:
		p, err = NewOpenRouterProvider(*v)
	default:
		p = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", cfg.Provider, err)
	}

	if repo != nil || log != nil {
		p = WithLogging(p, cfg.Provider, repo, log)
	}
	p = WithRetry(p, cfg.Retry, log)
	if cfg.Timeout > 0 {
		p = WithTimeout(p, cfg.Timeout)
	}
	return p, nil
}
