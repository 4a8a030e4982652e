package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "findata-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{tableLLMEvents, tableRuns, tableSequence} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.EventRepo().AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "dataset-gen", Success: true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	events, err := s.EventRepo().QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events after reopen = %d, want 1", len(events))
	}
}

func TestSequence_StartsAtOne(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc := s.seq

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestLLMEventAppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	inputs := []LLMRequestEventData{
		{RunID: "run-1", Provider: "openai", Model: "gpt-4o-mini", Purpose: "dataset-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "[user]\nhi", ResponseBody: `{"dataset_items":[]}`},
		{RunID: "run-1", Provider: "openai", Model: "gpt-4o-mini", Purpose: "dataset-gen", InputTokens: 80, LatencyMs: 100, Success: false, ErrorMessage: "rate limited"},
		{RunID: "run-2", Provider: "anthropic", Model: "claude-haiku-4-5-20251001", Purpose: "other", InputTokens: 10, OutputTokens: 5, LatencyMs: 50, Success: true},
	}
	for i, in := range inputs {
		if err := repo.AppendLLMRequest(ctx, in); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	if all[0].Purpose != "other" {
		t.Errorf("newest event purpose = %q, want 'other'", all[0].Purpose)
	}
	if all[0].Sequence <= all[1].Sequence {
		t.Errorf("expected descending sequence, got %d then %d", all[0].Sequence, all[1].Sequence)
	}

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("query limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited events = %d, want 1", len(limited))
	}

	byRun, err := repo.QueryLLMEvents(ctx, QueryOpts{RunID: "run-1"})
	if err != nil {
		t.Fatalf("query run: %v", err)
	}
	if len(byRun) != 2 {
		t.Fatalf("run-1 events = %d, want 2", len(byRun))
	}

	e, err := repo.GetLLMEvent(ctx, byRun[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || e.RequestBody != "[user]\nhi" || !e.Success {
		t.Fatalf("unexpected event: %+v", e)
	}
	if time.Since(e.Timestamp) > time.Minute {
		t.Errorf("timestamp too old: %v", e.Timestamp)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing event")
	}
}

func TestLLMUsageAggregates(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, in := range []LLMRequestEventData{
		{Model: "gpt-4o-mini", Purpose: "dataset-gen", InputTokens: 100, OutputTokens: 40, LatencyMs: 100, Success: true},
		{Model: "gpt-4o-mini", Purpose: "dataset-gen", InputTokens: 50, OutputTokens: 10, LatencyMs: 300, Success: false},
		{Model: "gemini-2.0-flash", Purpose: "probe", InputTokens: 7, OutputTokens: 3, LatencyMs: 20, Success: true},
	} {
		if err := repo.AppendLLMRequest(ctx, in); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	purposes, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(purposes) != 2 {
		t.Fatalf("purposes = %d, want 2", len(purposes))
	}
	gen := purposes[0]
	if gen.Purpose != "dataset-gen" || gen.Calls != 2 || gen.Failures != 1 {
		t.Errorf("unexpected dataset-gen usage: %+v", gen)
	}
	if gen.InputTokens != 150 || gen.OutputTokens != 50 || gen.AvgLatencyMs != 200 {
		t.Errorf("unexpected dataset-gen totals: %+v", gen)
	}

	models, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models = %d, want 2", len(models))
	}
	if models[1].Model != "gpt-4o-mini" || models[1].Calls != 2 {
		t.Errorf("unexpected model usage: %+v", models[1])
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	repo := s.RunRepo()
	ctx := context.Background()

	id, err := repo.Start(ctx, RunStart{Source: "10-K", SourceRef: "AAPL 2023", Model: "gpt-4o-mini", Chunks: 12, Requested: 24})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("expected run ID")
	}

	run, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Status != RunRunning || run.FinishedAt != nil {
		t.Fatalf("unexpected running state: %+v", run)
	}

	err = repo.Finish(ctx, id, RunResult{Generated: 20, FailedChunks: 2, Status: RunCompleted})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	run, err = repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get after finish: %v", err)
	}
	if run.Status != RunCompleted || run.Generated != 20 || run.FailedChunks != 2 {
		t.Errorf("unexpected finished run: %+v", run)
	}
	if run.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}

	if err := repo.Finish(ctx, "no-such-run", RunResult{Status: RunFailed}); err == nil {
		t.Error("expected error finishing unknown run")
	}
}

func TestRunListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	repo := s.RunRepo()
	ctx := context.Background()

	var ids []string
	for _, src := range []string{"text", "pdf", "10-Q"} {
		id, err := repo.Start(ctx, RunStart{Source: src, Requested: 5})
		if err != nil {
			t.Fatalf("start %s: %v", src, err)
		}
		ids = append(ids, id)
	}

	runs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[0].Source != "10-Q" {
		t.Errorf("newest run = %+v, want %s", runs[0], ids[2])
	}

	missing, err := repo.Get(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("get missing = %+v, %v", missing, err)
	}
}
