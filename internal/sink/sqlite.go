package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recruits/internal/record"
)

//go:embed schema.sql
var Schema string

// SQLite stores runs and their records in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DB exposes the underlying handle.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error { return s.db.Close() }

// WriteRun stores records under runID in one transaction. Records keep their
// input order in the seq column.
func (s *SQLite) WriteRun(ctx context.Context, runID string, seasons []int, started time.Time, records []record.Athlete) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	parts := make([]string, len(seasons))
	for i, season := range seasons {
		parts[i] = fmt.Sprint(season)
	}
	if _, err := tx.ExecContext(ctx,
		`insert into runs (id, started_at, seasons, records) values (?, ?, ?, ?)`,
		runID, started.Format(record.TimeLayout), strings.Join(parts, ","), len(records),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `insert into athletes values (?, ?, `+placeholders(len(record.Headers))+`)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range records {
		args := []any{runID, i}
		for _, cell := range a.Row() {
			args = append(args, cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
