// Package llm talks to the language model vendors. Every vendor is
// reached through Provider, which takes a prompt plus an optional JSON
// schema and returns the model's JSON document, already validated.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one structured response per call.
type Provider interface {
	// Generate sends req and returns the reply. With a Schema the vendor's
	// structured output mode is used and Content is validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the vendor model the provider sends requests to.
	ModelID() string
}

// Request is a single prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema constrains the reply. Nil means free text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output. Name doubles as the
// Anthropic tool name and the OpenAI response format name, so it must
// match ^[a-zA-Z0-9_-]{1,64}$.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a completed generation.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string // model that served the call, may differ from ModelID
	StopReason StopReason
}

// StopReason is why the model stopped, normalised across vendors.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
	StopFiltered  StopReason = "filtered"
)

// Usage counts tokens for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish turns a vendor reply into a Response. Truncated replies become
// ErrMaxTokensExceeded and structured replies are checked against the
// request schema.
func finish(req Request, content json.RawMessage, u Usage, model string, stop StopReason) (*Response, error) {
	if stop == StopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if err := ValidateJSON(req.Schema, content); err != nil {
		return nil, err
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return &Response{Content: content, Usage: u, Model: model, StopReason: stop}, nil
}

// resolveModel maps a short model alias to the vendor ID. Unknown names
// pass through.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
