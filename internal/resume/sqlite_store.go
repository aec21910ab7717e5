// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SqliteStore implements Store over a single sqlite database file, the
// default durable backend: a resume checkpoint survives as long as the
// file does, independent of whichever internal/store backend is active.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (creating if absent) a sqlite database at dbPath and
// runs its schema migration.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("resume: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resume: ping sqlite: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resume: migrate: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version >= schemaVersion {
		return nil
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS resume_checkpoints (
		item_id    TEXT NOT NULL,
		source_url TEXT NOT NULL,
		token      BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (item_id, source_url)
	);
	CREATE INDEX IF NOT EXISTS idx_resume_item ON resume_checkpoints(item_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

func (s *SqliteStore) Put(ctx context.Context, itemID, sourceURL string, cp Checkpoint) error {
	const query = `
	INSERT INTO resume_checkpoints (item_id, source_url, token, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(item_id, source_url) DO UPDATE SET
		token = excluded.token,
		updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, itemID, sourceURL, cp.Token, cp.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *SqliteStore) Get(ctx context.Context, itemID, sourceURL string) (Checkpoint, error) {
	const query = `SELECT token, updated_at FROM resume_checkpoints WHERE item_id = ? AND source_url = ?`
	var cp Checkpoint
	var updatedAt string
	err := s.db.QueryRowContext(ctx, query, itemID, sourceURL).Scan(&cp.Token, &updatedAt)
	if err == sql.ErrNoRows {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, err
	}
	cp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	return cp, err
}

func (s *SqliteStore) Delete(ctx context.Context, itemID, sourceURL string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM resume_checkpoints WHERE item_id = ? AND source_url = ?", itemID, sourceURL)
	return err
}

func (s *SqliteStore) DeleteItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM resume_checkpoints WHERE item_id = ?", itemID)
	return err
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}
