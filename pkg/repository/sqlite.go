package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	success      INTEGER NOT NULL,
	report_title TEXT NOT NULL DEFAULT '',
	result       TEXT NOT NULL,
	memory       TEXT,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// timeLayout has a fixed width so that created_at orders correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite stores runs in a local database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to migrate database", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func (r *SQLite) PutRun(ctx context.Context, run *model.RunSnapshot) error {
	if run == nil || run.ID == "" {
		return goerr.Wrap(model.ErrMalformedInput, "run snapshot without ID")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, query, success, report_title, result, memory, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query = excluded.query,
			success = excluded.success,
			report_title = excluded.report_title,
			result = excluded.result,
			memory = excluded.memory,
			created_at = excluded.created_at`,
		string(run.ID), run.Query, run.Success, run.ReportTitle,
		string(run.Result), nullString(run.Memory), run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return goerr.Wrap(err, "failed to put run", goerr.V("id", run.ID))
	}
	return nil
}

func (r *SQLite) GetRun(ctx context.Context, id model.RunID) (*model.RunSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, query, success, report_title, result, memory, created_at
		FROM runs WHERE id = ?`, string(id))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "run not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("id", id))
	}
	return run, nil
}

func (r *SQLite) ListRuns(ctx context.Context, limit int) ([]*model.RunSnapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, query, success, report_title, result, memory, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*model.RunSnapshot
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate runs")
	}
	return runs, nil
}

func (r *SQLite) LatestRun(ctx context.Context) (*model.RunSnapshot, error) {
	return latest(ctx, r)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.RunSnapshot, error) {
	var (
		id, query, title, result, createdAt string
		memory                              sql.NullString
		success                             bool
	)
	if err := s.Scan(&id, &query, &success, &title, &result, &memory, &createdAt); err != nil {
		return nil, err
	}

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid created_at", goerr.V("id", id), goerr.V("value", createdAt))
	}

	return &model.RunSnapshot{
		ID:          model.RunID(id),
		Query:       query,
		Success:     success,
		ReportTitle: title,
		Result:      rawJSON(result),
		Memory:      rawJSON(memory.String),
		CreatedAt:   created,
	}, nil
}

func nullString(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
