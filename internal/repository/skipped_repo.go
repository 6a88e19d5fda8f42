package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

// SkippedRepo holds the bounded dead-letter set of event ids that were
// skipped because their customer or account could not be resolved.
type SkippedRepo struct {
	db  *sql.DB
	cap int
}

func NewSkippedRepo(db *sql.DB, capacity int) *SkippedRepo {
	if capacity <= 0 {
		capacity = 1000
	}
	return &SkippedRepo{db: db, cap: capacity}
}

// Add records a skipped event id. When the set is at capacity the oldest
// entries are evicted first; losing very old skips is acceptable, the set is
// best-effort recovery, not a durability guarantee.
func (r *SkippedRepo) Add(eventID, reason string) error {
	_, err := r.db.Exec(
		`INSERT INTO skipped_events (event_id, reason, skipped_at) VALUES (?,?,?)
		ON CONFLICT(event_id) DO UPDATE SET reason = excluded.reason, skipped_at = excluded.skipped_at`,
		eventID, reason, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("add skipped event: %w", err)
	}

	_, err = r.db.Exec(
		`DELETE FROM skipped_events WHERE event_id NOT IN
		(SELECT event_id FROM skipped_events ORDER BY skipped_at DESC LIMIT ?)`,
		r.cap,
	)
	if err != nil {
		return fmt.Errorf("trim skipped events: %w", err)
	}
	return nil
}

// List returns up to limit skipped events, oldest first.
func (r *SkippedRepo) List(limit int) ([]domain.SkippedEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(
		"SELECT event_id, reason, skipped_at FROM skipped_events ORDER BY skipped_at LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var events []domain.SkippedEvent
	for rows.Next() {
		var e domain.SkippedEvent
		var skippedAt string
		if err := rows.Scan(&e.EventID, &e.Reason, &skippedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.SkippedAt, _ = time.Parse(time.RFC3339Nano, skippedAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SkippedRepo) Remove(eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(eventIDs))
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := r.db.Exec(
		"DELETE FROM skipped_events WHERE event_id IN ("+strings.Join(placeholders, ",")+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("remove skipped events: %w", err)
	}
	return nil
}

func (r *SkippedRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM skipped_events").Scan(&count)
	return count, err
}
