package domain

import "time"

// Customer maps an external Bridge customer id to an internal customer.
type Customer struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubAccount maps an external Bridge account id to an internal account,
// scoped to its owning customer.
type SubAccount struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	ExternalID string    `json:"external_id"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
