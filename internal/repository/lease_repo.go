package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// LeaseRepo implements a best-effort run-exclusion lease on top of SQLite.
// A lease is a named row with an owner and an expiry; acquisition succeeds
// only when the row is absent, expired, or already held by the same owner.
type LeaseRepo struct {
	db *sql.DB
}

func NewLeaseRepo(db *sql.DB) *LeaseRepo {
	return &LeaseRepo{db: db}
}

// Acquire attempts to take the named lease for ttl. Returns false when the
// lease is currently held by a different owner.
func (r *LeaseRepo) Acquire(name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	expires := now + ttl.Milliseconds()

	res, err := r.db.Exec(
		`INSERT INTO leases (name, owner, expires_at) VALUES (?,?,?)
		ON CONFLICT(name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE leases.expires_at < ? OR leases.owner = excluded.owner`,
		name, owner, expires, now,
	)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return affected > 0, nil
}

// Release frees the lease if (and only if) it is still held by owner.
func (r *LeaseRepo) Release(name, owner string) error {
	_, err := r.db.Exec(
		"DELETE FROM leases WHERE name = ? AND owner = ?", name, owner,
	)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
