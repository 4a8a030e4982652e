package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/findata/internal/store"
	"github.com/sirupsen/logrus"
)

type recordingRepo struct {
	mu      sync.Mutex
	events  []store.LLMRequestEventData
	failErr error
}

func (r *recordingRepo) AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.events = append(r.events, data)
	return nil
}

func (r *recordingRepo) QueryLLMEvents(ctx context.Context, opts store.QueryOpts) ([]store.LLMRequestEvent, error) {
	return nil, nil
}

func (r *recordingRepo) GetLLMEvent(ctx context.Context, id int) (*store.LLMRequestEvent, error) {
	return nil, nil
}

func (r *recordingRepo) LLMUsageByPurpose(ctx context.Context) ([]store.PurposeUsage, error) {
	return nil, nil
}

func (r *recordingRepo) LLMUsageByModel(ctx context.Context) ([]store.ModelUsage, error) {
	return nil, nil
}

func TestLoggingProvider_RecordsEvent(t *testing.T) {
	repo := &recordingRepo{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"dataset_items":[]}`),
		Usage:   Usage{InputTokens: 50, OutputTokens: 7, TotalTokens: 57},
	})
	p := WithLogging(mock, ProviderMock, repo, nil)

	ctx := WithRunID(WithPurpose(context.Background(), PurposeDatasetGen), "run-42")
	_, err := p.Generate(ctx, Request{
		System:   "financial analyst",
		Messages: []Message{{Role: RoleUser, Content: "Generate 2 questions"}},
		Schema:   datasetTestSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	ev := repo.events[0]
	if ev.RunID != "run-42" || ev.Purpose != "dataset-gen" || ev.Provider != "mock" {
		t.Fatalf("unexpected labels: %+v", ev)
	}
	if !ev.Success || ev.InputTokens != 50 || ev.OutputTokens != 7 {
		t.Fatalf("unexpected usage: %+v", ev)
	}
	if !strings.Contains(ev.RequestBody, "[schema: generate_dataset]") {
		t.Fatalf("request body missing schema: %q", ev.RequestBody)
	}
	if ev.ResponseBody != `{"dataset_items":[]}` {
		t.Fatalf("unexpected response body: %q", ev.ResponseBody)
	}
}

func TestLoggingProvider_AuditFailureDoesNotFailRequest(t *testing.T) {
	repo := &recordingRepo{failErr: errors.New("disk full")}
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	p := WithLogging(mock, ProviderMock, repo, log)

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected the provider error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), "failed to record LLM request event") {
		t.Fatalf("expected audit warning, got %q", buf.String())
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return &Response{}, nil
	}
}

func (slowProvider) ModelID() string { return "slow" }

func TestTimeoutProvider(t *testing.T) {
	p := WithTimeout(slowProvider{}, 10*time.Millisecond)

	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if p.ModelID() != "slow" {
		t.Fatalf("expected 'slow', got %q", p.ModelID())
	}
}
