package domain

import (
	"encoding/json"
	"time"
)

// TransactionRecord is the locally owned, normalized form of an activity
// event. Its ID is the source event id, which makes record creation
// naturally idempotent: re-processing the same page upserts the same rows.
type TransactionRecord struct {
	ID                 string          `json:"id"`
	SourceEventID      string          `json:"source_event_id"`
	CustomerID         string          `json:"customer_id"`
	AccountID          string          `json:"account_id"`
	Type               ActivityType    `json:"type"`
	Amount             float64         `json:"amount"`
	DeveloperFeeAmount float64         `json:"developer_fee_amount"`
	ExchangeFeeAmount  float64         `json:"exchange_fee_amount"`
	Currency           string          `json:"currency"`
	Description        string          `json:"description,omitempty"`
	SenderName         string          `json:"sender_name,omitempty"`
	TraceNumber        string          `json:"trace_number,omitempty"`
	DepositID          string          `json:"deposit_id,omitempty"`
	OccurredAt         int64           `json:"occurred_at"`
	RawData            json.RawMessage `json:"raw_data,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SkippedEvent is a dead-letter entry for an activity event whose customer
// or account could not be resolved when its page was processed. The main
// cursor advances past such events, so they are retried from here on a
// slower cadence.
type SkippedEvent struct {
	EventID   string    `json:"event_id"`
	Reason    string    `json:"reason"`
	SkippedAt time.Time `json:"skipped_at"`
}
