package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/findata/internal/dataset"
	"github.com/abhisek/findata/internal/llm"
	"github.com/abhisek/findata/internal/logger"
	"github.com/sirupsen/logrus"
)

// LLMConfig configures an LLMBackend. Zero values pick the defaults.
type LLMConfig struct {
	SystemPrompt string
	UserTemplate string
	MaxTokens    int
	Temperature  float64
	// Validators default to DefaultValidators(false).
	Validators []ItemValidator
	Log        logrus.FieldLogger
}

// LLMBackend generates batches through an llm.Provider using structured
// output.
type LLMBackend struct {
	provider llm.Provider
	tmpl     *template.Template
	cfg      LLMConfig
	log      logrus.FieldLogger
}

// NewLLMBackend validates the prompt template and returns a backend.
func NewLLMBackend(p llm.Provider, cfg LLMConfig) (*LLMBackend, error) {
	tmpl, err := parseUserTemplate(cfg.UserTemplate)
	if err != nil {
		return nil, err
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Validators == nil {
		cfg.Validators = DefaultValidators(false)
	}
	log := cfg.Log
	if log == nil {
		log = logger.Discard()
	}
	return &LLMBackend{provider: p, tmpl: tmpl, cfg: cfg, log: log}, nil
}

// Model returns the provider's model ID.
func (b *LLMBackend) Model() string {
	return b.provider.ModelID()
}

type datasetResponse struct {
	Items []dataset.Item `json:"dataset_items"`
}

func (b *LLMBackend) GenerateBatch(ctx context.Context, req BatchRequest) ([]dataset.Item, error) {
	msg, err := renderUserMessage(b.tmpl, req.Count, req.Chunk)
	if err != nil {
		return nil, err
	}

	if llm.PurposeFrom(ctx) == "unknown" {
		ctx = llm.WithPurpose(ctx, llm.PurposeDatasetGen)
	}
	resp, err := b.provider.Generate(ctx, llm.Request{
		System:      b.cfg.SystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      DatasetSchema(),
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", req.Index, err)
	}

	var out datasetResponse
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("chunk %d: %w", req.Index, &llm.ErrInvalidResponse{Content: resp.Content, Err: err})
	}

	items := make([]dataset.Item, 0, len(out.Items))
	for n, it := range out.Items {
		it = dataset.Item{
			Question: strings.TrimSpace(it.Question),
			Answer:   strings.TrimSpace(it.Answer),
			Context:  strings.TrimSpace(it.Context),
		}
		if err := b.check(it, req.Chunk); err != nil {
			b.log.WithFields(logrus.Fields{"chunk": req.Index, "item": n}).WithError(err).Warn("dropping generated item")
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (b *LLMBackend) check(it dataset.Item, chunk string) error {
	for _, v := range b.cfg.Validators {
		if err := v.Validate(it, chunk); err != nil {
			return err
		}
	}
	return nil
}
