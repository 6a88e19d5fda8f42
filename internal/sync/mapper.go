package sync

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

// MapEvent converts an external activity event into a transaction record
// for the given resolved customer and account. It is pure and total:
// missing or unparseable monetary strings map to 0, a missing currency maps
// to "USD", and an unparseable created_at maps to occurred_at 0.
func MapEvent(ev domain.ActivityEvent, customerID, accountID string, now time.Time) domain.TransactionRecord {
	raw, _ := json.Marshal(ev)

	currency := ev.Currency
	if currency == "" {
		currency = "USD"
	}

	return domain.TransactionRecord{
		ID:                 ev.ID,
		SourceEventID:      ev.ID,
		CustomerID:         customerID,
		AccountID:          accountID,
		Type:               ev.Type,
		Amount:             parseAmount(ev.Amount),
		DeveloperFeeAmount: parseAmount(ev.DeveloperFeeAmount),
		ExchangeFeeAmount:  parseAmount(ev.ExchangeFeeAmount),
		Currency:           currency,
		Description:        ev.Source.Description,
		SenderName:         ev.Source.SenderName,
		TraceNumber:        ev.Source.TraceNumber,
		DepositID:          ev.DepositID,
		OccurredAt:         parseEpochMillis(ev.CreatedAt),
		RawData:            raw,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// parseAmount parses a decimal string, treating absence and garbage as 0.
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseEpochMillis parses an RFC 3339 timestamp to epoch milliseconds.
func parseEpochMillis(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
