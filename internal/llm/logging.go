package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/findata/internal/store"
	"github.com/sirupsen/logrus"
)

// LoggingProvider writes one llm_request_events row and one debug line per
// call. Neither can fail the call.
type LoggingProvider struct {
	inner    Provider
	provider string
	repo     store.EventRepo
	log      logrus.FieldLogger
}

// WithLogging wraps p. repo and log are each optional.
func WithLogging(p Provider, provider string, repo store.EventRepo, log logrus.FieldLogger) Provider {
	return &LoggingProvider{inner: p, provider: provider, repo: repo, log: log}
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	ev := l.event(ctx, req, resp, err, time.Since(start))

	if l.log != nil {
		l.debug(ev, resp, err)
	}
	if l.repo != nil {
		// The audit row is written even when ctx was cancelled mid-call.
		if werr := l.repo.AppendLLMRequest(context.WithoutCancel(ctx), ev); werr != nil && l.log != nil {
			l.log.WithError(werr).Warn("failed to record LLM request event")
		}
	}
	return resp, err
}

func (l *LoggingProvider) event(ctx context.Context, req Request, resp *Response, err error, took time.Duration) store.LLMRequestEventData {
	ev := store.LLMRequestEventData{
		RunID:       RunIDFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   took.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	return ev
}

func (l *LoggingProvider) debug(ev store.LLMRequestEventData, resp *Response, err error) {
	entry := l.log.WithFields(logrus.Fields{
		"provider":   ev.Provider,
		"model":      ev.Model,
		"purpose":    ev.Purpose,
		"run":        ev.RunID,
		"latency_ms": ev.LatencyMs,
		"in_tokens":  ev.InputTokens,
		"out_tokens": ev.OutputTokens,
	})
	if resp != nil {
		if usd, ok := EstimateCost(ev.Model, resp.Usage); ok {
			entry = entry.WithField("cost_usd", fmt.Sprintf("%.6f", usd))
		}
	}
	if err != nil {
		entry.WithError(err).Debug("llm request failed")
		return
	}
	entry.Debug("llm request")
}

// transcript renders a request as the plain text stored in the audit log:
// one "[role]" section per message, then the schema if any.
func transcript(req Request) string {
	var b strings.Builder
	section := func(label, body string) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", label, body)
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			section("schema: "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
