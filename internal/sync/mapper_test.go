package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

func TestMapEvent_Defaults(t *testing.T) {
	now := time.Now().UTC()
	ev := domain.ActivityEvent{
		ID:                 "evt_001",
		Type:               domain.ActivityFundsReceived,
		CustomerExternalID: "cust_abc",
		AccountExternalID:  "acct_def",
		CreatedAt:          "2024-03-01T12:00:00Z",
	}

	rec := MapEvent(ev, "CUST-1", "ACCT-1", now)

	if rec.Amount != 0 {
		t.Errorf("expected amount 0 for absent field, got %v", rec.Amount)
	}
	if rec.DeveloperFeeAmount != 0 || rec.ExchangeFeeAmount != 0 {
		t.Errorf("expected fee defaults 0, got %v / %v",
			rec.DeveloperFeeAmount, rec.ExchangeFeeAmount)
	}
	if rec.Currency != "USD" {
		t.Errorf("expected currency USD default, got %q", rec.Currency)
	}
	if rec.ID != "evt_001" || rec.SourceEventID != "evt_001" {
		t.Errorf("expected id and source_event_id evt_001, got %q / %q",
			rec.ID, rec.SourceEventID)
	}
	if rec.CustomerID != "CUST-1" || rec.AccountID != "ACCT-1" {
		t.Errorf("unexpected resolved ids: %q / %q", rec.CustomerID, rec.AccountID)
	}

	wantMillis := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	if rec.OccurredAt != wantMillis {
		t.Errorf("expected occurred_at %d, got %d", wantMillis, rec.OccurredAt)
	}
}

func TestMapEvent_ParsesFields(t *testing.T) {
	ev := domain.ActivityEvent{
		ID:                 "evt_002",
		Type:               domain.ActivityPaymentProcessed,
		CustomerExternalID: "cust_abc",
		AccountExternalID:  "acct_def",
		Amount:             "125.50",
		DeveloperFeeAmount: "1.25",
		ExchangeFeeAmount:  "0.75",
		Currency:           "EUR",
		DepositID:          "dep_9",
		CreatedAt:          "2024-03-02T08:30:00.500Z",
		Source: domain.ActivitySource{
			Description: "Invoice 42",
			SenderName:  "Acme",
			TraceNumber: "TRACE-77",
		},
	}

	rec := MapEvent(ev, "CUST-1", "ACCT-1", time.Now().UTC())

	if rec.Amount != 125.50 {
		t.Errorf("amount: want 125.50 got %v", rec.Amount)
	}
	if rec.DeveloperFeeAmount != 1.25 || rec.ExchangeFeeAmount != 0.75 {
		t.Errorf("fees: got %v / %v", rec.DeveloperFeeAmount, rec.ExchangeFeeAmount)
	}
	if rec.Currency != "EUR" {
		t.Errorf("currency: want EUR got %q", rec.Currency)
	}
	if rec.Description != "Invoice 42" || rec.SenderName != "Acme" || rec.TraceNumber != "TRACE-77" {
		t.Errorf("source fields not carried: %+v", rec)
	}
	if rec.DepositID != "dep_9" {
		t.Errorf("deposit id: got %q", rec.DepositID)
	}

	var raw domain.ActivityEvent
	if err := json.Unmarshal(rec.RawData, &raw); err != nil {
		t.Fatalf("raw data not valid JSON: %v", err)
	}
	if raw.ID != ev.ID || raw.Amount != ev.Amount {
		t.Errorf("raw data does not preserve the original event: %+v", raw)
	}
}

func TestMapEvent_Total(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		createdAt string
		wantAmt   float64
		wantAt    int64
	}{
		{"garbage amount", "not-a-number", "2024-01-01T00:00:00Z", 0, 1704067200000},
		{"garbage timestamp", "10", "yesterday", 10, 0},
		{"both empty", "", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := domain.ActivityEvent{
				ID:        "evt_x",
				Amount:    tt.amount,
				CreatedAt: tt.createdAt,
			}
			rec := MapEvent(ev, "C", "A", time.Now().UTC())
			if rec.Amount != tt.wantAmt {
				t.Errorf("amount: want %v got %v", tt.wantAmt, rec.Amount)
			}
			if rec.OccurredAt != tt.wantAt {
				t.Errorf("occurred_at: want %d got %d", tt.wantAt, rec.OccurredAt)
			}
		})
	}
}
