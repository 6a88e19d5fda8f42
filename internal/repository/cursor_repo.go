package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// CursorRepo persists sync watermarks: one opaque string value per key.
type CursorRepo struct {
	db *sql.DB
}

func NewCursorRepo(db *sql.DB) *CursorRepo {
	return &CursorRepo{db: db}
}

// Get returns the cursor value for key. The second return is false when no
// cursor has been written yet (full backfill).
func (r *CursorRepo) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(
		"SELECT value FROM sync_cursors WHERE key = ?", key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cursor: %w", err)
	}
	return value, true, nil
}

// Set overwrites the cursor value for key.
func (r *CursorRepo) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO sync_cursors (key, value, updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
