package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

// SchedulerRepo persists recurring-job definitions so that redeploys can
// detect and replace stale registrations instead of accumulating them.
type SchedulerRepo struct {
	db *sql.DB
}

func NewSchedulerRepo(db *sql.DB) *SchedulerRepo {
	return &SchedulerRepo{db: db}
}

func (r *SchedulerRepo) List() ([]domain.JobScheduler, error) {
	rows, err := r.db.Query("SELECT key, id, name, every, updated_at FROM job_schedulers ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var defs []domain.JobScheduler
	for rows.Next() {
		var d domain.JobScheduler
		var updatedAt string
		if err := rows.Scan(&d.Key, &d.ID, &d.Name, &d.Every, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (r *SchedulerRepo) Remove(key string) error {
	if _, err := r.db.Exec("DELETE FROM job_schedulers WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove scheduler %s: %w", key, err)
	}
	return nil
}

// Upsert creates or replaces the definition with the given key, so repeated
// registrations with the same key never produce duplicates.
func (r *SchedulerRepo) Upsert(d *domain.JobScheduler) error {
	_, err := r.db.Exec(
		`INSERT INTO job_schedulers (key, id, name, every, updated_at) VALUES (?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET
			id = excluded.id, name = excluded.name,
			every = excluded.every, updated_at = excluded.updated_at`,
		d.Key, d.ID, d.Name, d.Every, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert scheduler %s: %w", d.Key, err)
	}
	return nil
}
