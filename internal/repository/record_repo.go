package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Upsert writes a transaction record keyed by its id. Re-writing an existing
// id replaces the row, which keeps retried pages from producing duplicates
// or duplicate-key failures.
func (r *RecordRepo) Upsert(rec *domain.TransactionRecord) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO transaction_records
		(id, source_event_id, customer_id, account_id, type, amount,
		 developer_fee_amount, exchange_fee_amount, currency, description,
		 sender_name, trace_number, deposit_id, occurred_at, raw_data,
		 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.SourceEventID, rec.CustomerID, rec.AccountID,
		string(rec.Type), rec.Amount, rec.DeveloperFeeAmount,
		rec.ExchangeFeeAmount, rec.Currency, rec.Description, rec.SenderName,
		rec.TraceNumber, rec.DepositID, rec.OccurredAt, string(rec.RawData),
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (r *RecordRepo) GetByID(id string) (*domain.TransactionRecord, error) {
	rows, err := r.db.Query(selectRecords+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRecord(rows)
}

// FindByTraceNumber returns all records sharing a trace number, in insertion
// order (rowid). Insertion order matters: the dedup pass resolves timestamp
// ties by keeping the first record returned.
func (r *RecordRepo) FindByTraceNumber(traceNumber string) ([]domain.TransactionRecord, error) {
	rows, err := r.db.Query(
		selectRecords+" WHERE trace_number = ? ORDER BY rowid", traceNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var recs []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// DeleteMany removes the given records in a single statement.
func (r *RecordRepo) DeleteMany(recs []domain.TransactionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	placeholders := make([]string, len(recs))
	args := make([]any, len(recs))
	for i := range recs {
		placeholders[i] = "?"
		args[i] = recs[i].ID
	}
	_, err := r.db.Exec(
		"DELETE FROM transaction_records WHERE id IN ("+strings.Join(placeholders, ",")+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func (r *RecordRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transaction_records").Scan(&count)
	return count, err
}

type RecordFilter struct {
	Type        string
	CustomerID  string
	TraceNumber string
	Page        int
	Limit       int
}

func (r *RecordRepo) List(f RecordFilter) ([]domain.TransactionRecord, int, error) {
	where, args := buildRecordWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM transaction_records" + where
	if err := r.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := selectRecords + where + " ORDER BY occurred_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var recs []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, total, rows.Err()
}

// --- helpers ---

const selectRecords = `SELECT id, source_event_id, customer_id, account_id,
	type, amount, developer_fee_amount, exchange_fee_amount, currency,
	description, sender_name, trace_number, deposit_id, occurred_at,
	raw_data, created_at, updated_at FROM transaction_records`

func buildRecordWhere(f RecordFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, f.Type)
	}
	if f.CustomerID != "" {
		clauses = append(clauses, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.TraceNumber != "" {
		clauses = append(clauses, "trace_number = ?")
		args = append(args, f.TraceNumber)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecord(rows *sql.Rows) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var typ, createdAt, updatedAt string
	var desc, sender, trace, deposit, raw sql.NullString

	err := rows.Scan(
		&rec.ID, &rec.SourceEventID, &rec.CustomerID, &rec.AccountID,
		&typ, &rec.Amount, &rec.DeveloperFeeAmount, &rec.ExchangeFeeAmount,
		&rec.Currency, &desc, &sender, &trace, &deposit, &rec.OccurredAt,
		&raw, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Type = domain.ActivityType(typ)
	rec.Description = desc.String
	rec.SenderName = sender.String
	rec.TraceNumber = trace.String
	rec.DepositID = deposit.String
	if raw.Valid && raw.String != "" {
		rec.RawData = []byte(raw.String)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &rec, nil
}
