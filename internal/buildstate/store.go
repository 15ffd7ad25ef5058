// Package buildstate records the builds made from each view in an SQLite
// database.
package buildstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	id          TEXT PRIMARY KEY,
	tag         TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	view_uuid   TEXT NOT NULL DEFAULT '',
	recreated   INTEGER NOT NULL DEFAULT 0,
	changesets  INTEGER NOT NULL DEFAULT 0,
	spec_commit TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS builds_tag_started ON builds(tag, started_at);
`

// Build is one recorded build of a view.
type Build struct {
	ID         string
	Tag        string
	StartedAt  time.Time
	ViewUUID   string
	Recreated  bool
	Changesets int
	SpecCommit string // archive commit of the original config spec
}

// Store is the build database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordBuild stores b, assigning an ID when it has none.
func (s *Store) RecordBuild(ctx context.Context, b Build) (Build, error) {
	if b.Tag == "" {
		return Build{}, errors.New("build without view tag")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, tag, started_at, view_uuid, recreated, changesets, spec_commit)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Tag, b.StartedAt.UnixMilli(), b.ViewUUID, b.Recreated, b.Changesets, b.SpecCommit)
	if err != nil {
		return Build{}, fmt.Errorf("record build of %s: %w", b.Tag, err)
	}
	return b, nil
}

// SetChangesets stores the number of changesets found for a build.
func (s *Store) SetChangesets(ctx context.Context, id string, n int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE builds SET changesets = ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("update build %s: %w", id, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("build %s not found", id)
	}
	return nil
}

// LastBuild returns the most recent build of tag. The boolean is false when
// the tag has never been built.
func (s *Store) LastBuild(ctx context.Context, tag string) (Build, bool, error) {
	builds, err := s.Builds(ctx, tag, 1)
	if err != nil {
		return Build{}, false, err
	}
	if len(builds) == 0 {
		return Build{}, false, nil
	}
	return builds[0], true, nil
}

// Builds returns up to limit builds of tag, newest first. A limit of zero or
// less returns all of them.
func (s *Store) Builds(ctx context.Context, tag string, limit int) ([]Build, error) {
	query := `SELECT id, tag, started_at, view_uuid, recreated, changesets, spec_commit
		FROM builds WHERE tag = ? ORDER BY started_at DESC, rowid DESC`
	args := []any{tag}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds of %s: %w", tag, err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var (
			b       Build
			started int64
		)
		if err := rows.Scan(&b.ID, &b.Tag, &started, &b.ViewUUID, &b.Recreated, &b.Changesets, &b.SpecCommit); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.StartedAt = time.UnixMilli(started)
		builds = append(builds, b)
	}
	return builds, rows.Err()
}
