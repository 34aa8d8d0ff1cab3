package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"lcp-engine/internal/engine"
)

// SQLiteStore persists snapshots as JSON documents, one row per session.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	current_step TEXT NOT NULL,
	snapshot     TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
`

type sessionRow struct {
	ID          string `db:"session_id"`
	CurrentStep string `db:"current_step"`
	Snapshot    string `db:"snapshot"`
	UpdatedAt   string `db:"updated_at"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, id string, snap engine.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	row := sessionRow{
		ID:          id,
		CurrentStep: string(snap.CurrentStep),
		Snapshot:    string(body),
		UpdatedAt:   snap.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO sessions (session_id, current_step, snapshot, updated_at)
		VALUES (:session_id, :current_step, :snapshot, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (engine.Snapshot, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT session_id, current_step, snapshot, updated_at FROM sessions WHERE session_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(row.Snapshot), &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
