package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

// DirectoryRepo resolves external Bridge identifiers to internal customers
// and sub-accounts.
type DirectoryRepo struct {
	db *sql.DB
}

func NewDirectoryRepo(db *sql.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// GetCustomerByExternalID returns nil (not an error) when no customer is
// registered for the external id.
func (r *DirectoryRepo) GetCustomerByExternalID(externalID string) (*domain.Customer, error) {
	var c domain.Customer
	var createdAt string
	err := r.db.QueryRow(
		"SELECT id, external_id, name, created_at FROM customers WHERE external_id = ?",
		externalID,
	).Scan(&c.ID, &c.ExternalID, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &c, nil
}

// GetSubAccountByID looks up a sub-account by its external id, scoped to the
// owning customer's internal id. Returns nil when not found.
func (r *DirectoryRepo) GetSubAccountByID(customerID, externalID string) (*domain.SubAccount, error) {
	var a domain.SubAccount
	var label sql.NullString
	var createdAt string
	err := r.db.QueryRow(
		`SELECT id, customer_id, external_id, label, created_at
		FROM sub_accounts WHERE customer_id = ? AND external_id = ?`,
		customerID, externalID,
	).Scan(&a.ID, &a.CustomerID, &a.ExternalID, &label, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sub-account: %w", err)
	}
	a.Label = label.String
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

func (r *DirectoryRepo) UpsertCustomer(c *domain.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(
		`INSERT INTO customers (id, external_id, name, created_at) VALUES (?,?,?,?)
		ON CONFLICT(external_id) DO UPDATE SET name = excluded.name`,
		c.ID, c.ExternalID, c.Name, c.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (r *DirectoryRepo) UpsertSubAccount(a *domain.SubAccount) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(
		`INSERT INTO sub_accounts (id, customer_id, external_id, label, created_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(customer_id, external_id) DO UPDATE SET label = excluded.label`,
		a.ID, a.CustomerID, a.ExternalID, a.Label, a.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert sub-account: %w", err)
	}
	return nil
}

func (r *DirectoryRepo) ListCustomers() ([]domain.Customer, error) {
	rows, err := r.db.Query("SELECT id, external_id, name, created_at FROM customers ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *DirectoryRepo) CountCustomers() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&count)
	return count, err
}
