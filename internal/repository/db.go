package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transaction_records (
			id TEXT PRIMARY KEY,
			source_event_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount REAL NOT NULL,
			developer_fee_amount REAL NOT NULL,
			exchange_fee_amount REAL NOT NULL,
			currency TEXT NOT NULL,
			description TEXT,
			sender_name TEXT,
			trace_number TEXT,
			deposit_id TEXT,
			occurred_at INTEGER NOT NULL,
			raw_data TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_trace_number ON transaction_records(trace_number)`,
		`CREATE INDEX IF NOT EXISTS idx_records_customer ON transaction_records(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_occurred_at ON transaction_records(occurred_at)`,

		`CREATE TABLE IF NOT EXISTS sync_cursors (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			external_id TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sub_accounts (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			label TEXT,
			created_at DATETIME NOT NULL,
			UNIQUE (customer_id, external_id),
			FOREIGN KEY (customer_id) REFERENCES customers(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sub_accounts_customer ON sub_accounts(customer_id)`,

		`CREATE TABLE IF NOT EXISTS job_schedulers (
			key TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			every INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS skipped_events (
			event_id TEXT PRIMARY KEY,
			reason TEXT NOT NULL,
			skipped_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS leases (
			name TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
