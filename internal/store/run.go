package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var runSelect = []string{
	"id", "sequence", "source", "source_ref", "model", "chunks", "requested",
	"generated", "failed_chunks", "status", "error_message", "started_at", "finished_at",
}

type runRepo struct {
	db  *sql.DB
	seq *sequence
}

func (r *runRepo) Start(ctx context.Context, start RunStart) (string, error) {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next sequence: %w", err)
	}

	id := uuid.NewString()
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableRuns).
		Columns("id", "sequence", "source", "source_ref", "model", "chunks", "requested", "status", "started_at").
		Values(id, seqNum, start.Source, start.SourceRef, start.Model, start.Chunks, start.Requested, string(RunRunning), time.Now().UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("save generation run: %w", err)
	}
	return id, nil
}

func (r *runRepo) Finish(ctx context.Context, id string, result RunResult) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Update(tableRuns).
		Set("generated", result.Generated).
		Set("failed_chunks", result.FailedChunks).
		Set("status", string(result.Status)).
		Set("error_message", result.ErrorMessage).
		Set("finished_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish generation run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("generation run %s not found", id)
	}
	return nil
}

func (r *runRepo) Get(ctx context.Context, id string) (*Run, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(runSelect...).
		From(b.Table(tableRuns)).
		Where(entsql.EQ("id", id)).
		Query()

	run, err := scanRun(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (r *runRepo) List(ctx context.Context, limit int) ([]Run, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(runSelect...).
		From(b.Table(tableRuns)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		status   string
		finished sql.NullTime
	)
	err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.Source,
		&run.SourceRef,
		&run.Model,
		&run.Chunks,
		&run.Requested,
		&run.Generated,
		&run.FailedChunks,
		&status,
		&run.ErrorMessage,
		&run.StartedAt,
		&finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan generation run: %w", err)
	}
	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
