package domain

// ActivityType categorizes an external Bridge activity event.
type ActivityType string

const (
	ActivityFundsScheduled   ActivityType = "funds_scheduled"
	ActivityFundsReceived    ActivityType = "funds_received"
	ActivityPaymentSubmitted ActivityType = "payment_submitted"
	ActivityPaymentProcessed ActivityType = "payment_processed"
	ActivityInReview         ActivityType = "in_review"
	ActivityRefund           ActivityType = "refund"
	ActivityMicrodeposit     ActivityType = "microdeposit"
	ActivityAccountUpdate    ActivityType = "account_update"
	ActivityDeactivation     ActivityType = "deactivation"
	ActivityActivation       ActivityType = "activation"
)

// ActivitySource carries the free-text origin details of an activity event.
// TraceNumber, when present, identifies an ACH retry chain: resubmissions of
// the same underlying payment share a trace number.
type ActivitySource struct {
	Description string `json:"description,omitempty"`
	SenderName  string `json:"sender_name,omitempty"`
	TraceNumber string `json:"trace_number,omitempty"`
}

// ActivityEvent is an immutable record received from the Bridge activity
// feed. IDs are issued monotonically by the source, so the newest event id
// doubles as the pagination cursor.
type ActivityEvent struct {
	ID                 string         `json:"id"`
	Type               ActivityType   `json:"type"`
	CustomerExternalID string         `json:"customer_id"`
	AccountExternalID  string         `json:"account_id"`
	Amount             string         `json:"amount,omitempty"`
	DeveloperFeeAmount string         `json:"developer_fee_amount,omitempty"`
	ExchangeFeeAmount  string         `json:"exchange_fee_amount,omitempty"`
	Currency           string         `json:"currency,omitempty"`
	DepositID          string         `json:"deposit_id,omitempty"`
	CreatedAt          string         `json:"created_at"`
	Source             ActivitySource `json:"source"`
}
