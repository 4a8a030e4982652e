package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequence numbers rows across llm_request_events and generation_runs so
// the two tables can be merged into a single timeline.
type sequence struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequence(ctx context.Context, db *sql.DB) (*sequence, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableSequence).
		Columns("id", "last").
		Values(1, 0).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequence{db: db}, nil
}

// Next increments the counter and returns the new value, starting at 1.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args := entsql.Dialect(dialect.SQLite).
		Update(tableSequence).
		Add("last", 1).
		Where(entsql.EQ("id", 1)).
		Returning("last").
		Query()
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
