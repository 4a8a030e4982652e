// Package store keeps findata's local history in SQLite: the audit log of
// every LLM request and one summary row per generation run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	_ "modernc.org/sqlite"
)

// Store is an open findata database.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequence
}

var pragmas = []string{
	"journal_mode = WAL",
	"busy_timeout = 5000",
	"foreign_keys = ON",
	"synchronous = NORMAL",
}

// Open opens or creates the database at path and brings its tables up to
// date.
func Open(path string) (*Store, error) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Pragmas apply per connection.
	db.SetMaxOpenConns(1)

	s, err := setup(ctx, db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return s, nil
}

func setup(ctx context.Context, db *sql.DB) (*Store, error) {
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, "PRAGMA "+p); err != nil {
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}
	drv := entsql.OpenDB(dialect.SQLite, db)
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	seq, err := newSequence(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB exposes the connection for ad hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.drv.Close() }

func (s *Store) EventRepo() EventRepo { return &eventRepo{db: s.db, seq: s.seq} }

func (s *Store) RunRepo() RunRepo { return &runRepo{db: s.db, seq: s.seq} }

// DefaultDBPath is $FINDATA_DB if set, else findata/findata.db under
// $XDG_DATA_HOME (default ~/.local/share). The parent directory is
// created.
func DefaultDBPath() (string, error) {
	p := os.Getenv("FINDATA_DB")
	if p == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("home dir: %w", err)
			}
			base = filepath.Join(home, ".local", "share")
		}
		p = filepath.Join(base, "findata", "findata.db")
	}
	return p, EnsureDir(p)
}

// EnsureDir creates path's parent directory.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
