package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var anthropicModels = map[string]string{
	"claude-sonnet": "claude-sonnet-4-20250514",
	"claude-haiku":  "claude-haiku-4-5-20251001",
}

// AnthropicProvider calls the Messages API. A schema request is sent as a
// single tool the model is forced to call; the tool input is the answer.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api_key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &c, model: resolveModel(cfg.Model, anthropicModels)}, nil
}

func (p *AnthropicProvider) ModelID() string { return p.model }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			var h http.Header
			if apiErr.Response != nil {
				h = apiErr.Response.Header
			}
			return nil, vendorError(err, apiErr.StatusCode, h)
		}
		return nil, vendorError(err, 0, nil)
	}

	stop := StopEnd
	if msg.StopReason == anthropic.StopReasonMaxTokens {
		stop = StopMaxTokens
	}
	var content json.RawMessage
	if stop != StopMaxTokens {
		if content, err = anthropicContent(msg, req.Schema); err != nil {
			return nil, err
		}
	}
	usage := Usage{InputTokens: int(msg.Usage.InputTokens), OutputTokens: int(msg.Usage.OutputTokens)}
	return finish(req, content, usage, string(msg.Model), stop)
}

func (p *AnthropicProvider) params(req Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.MaxTokens),
	}
	for _, m := range req.Messages {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.Schema != nil {
		params.Tools = []anthropic.ToolUnionParam{anthropicTool(req.Schema)}
		params.ToolChoice = anthropic.ToolChoiceParamOfTool(req.Schema.Name)
	}
	return params
}

// anthropicTool turns a Schema into the tool the model is forced to call.
func anthropicTool(s *Schema) anthropic.ToolUnionParam {
	input := anthropic.ToolInputSchemaParam{Properties: s.Definition["properties"]}
	switch req := s.Definition["required"].(type) {
	case []string:
		input.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				input.Required = append(input.Required, name)
			}
		}
	}
	tool := anthropic.ToolUnionParamOfTool(input, s.Name)
	if s.Description != "" {
		tool.OfTool.Description = anthropic.String(s.Description)
	}
	return tool
}

// anthropicContent picks the forced tool call's input, or the first text
// block for free-text requests.
func anthropicContent(msg *anthropic.Message, schema *Schema) (json.RawMessage, error) {
	for _, b := range msg.Content {
		if schema != nil && b.Type == "tool_use" && b.Name == schema.Name {
			return b.Input, nil
		}
		if schema == nil && b.Type == "text" {
			return json.RawMessage(b.Text), nil
		}
	}
	want := "text block"
	if schema != nil {
		want = schema.Name + " tool call"
	}
	return nil, &ErrInvalidResponse{Err: fmt.Errorf("anthropic reply has no %s", want)}
}
