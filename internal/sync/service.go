// Package sync implements the Bridge activity sync cycle: cursor-driven
// pagination, event-to-record mapping, trace-number deduplication, and
// watermark advancement.
package sync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
	"github.com/vaultleap/bridgesync/internal/metrics"
	"github.com/vaultleap/bridgesync/internal/repository"
)

// CursorKey is the watermark key for the activity stream: the last
// externally-assigned event id fully processed.
const CursorKey = "bridge:activities:last_synced_id"

// ActivitySource fetches external activity events. Pages come back newest
// first, capped at the source's page limit.
type ActivitySource interface {
	FetchPage(ctx context.Context, afterID string) ([]domain.ActivityEvent, error)
	FetchEvent(ctx context.Context, id string) (*domain.ActivityEvent, error)
}

// RecordStore is the slice of the transaction record store the sync cycle
// writes through. Upsert must be idempotent on the record id.
type RecordStore interface {
	Upsert(rec *domain.TransactionRecord) error
	FindByTraceNumber(traceNumber string) ([]domain.TransactionRecord, error)
	DeleteMany(recs []domain.TransactionRecord) error
}

// Result summarises a single sync cycle.
type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// Status is the externally visible state of the sync job.
type Status struct {
	Cursor       string    `json:"cursor,omitempty"`
	LastRunAt    time.Time `json:"last_run_at,omitempty"`
	LastResult   *Result   `json:"last_result,omitempty"`
	SkippedCount int       `json:"skipped_count"`
}

// Service orchestrates sync cycles against the local stores.
type Service struct {
	source    ActivitySource
	records   RecordStore
	cursors   *repository.CursorRepo
	directory *repository.DirectoryRepo
	skipped   *repository.SkippedRepo

	mu         sync.Mutex
	lastRunAt  time.Time
	lastResult *Result
}

// NewService creates a sync service.
func NewService(
	source ActivitySource,
	records RecordStore,
	cursors *repository.CursorRepo,
	directory *repository.DirectoryRepo,
	skipped *repository.SkippedRepo,
) *Service {
	return &Service{
		source:    source,
		records:   records,
		cursors:   cursors,
		directory: directory,
		skipped:   skipped,
	}
}

// Run executes one sync cycle. The cursor only moves after the whole page
// is processed, so any error leaves the cycle retryable from the same
// starting point; record writes are upserts, so the retry is safe.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	cursor, _, err := s.cursors.Get(CursorKey)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read cursor: %w", err)
	}

	page, err := s.source.FetchPage(ctx, cursor)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch page after %q: %w", cursor, err)
	}

	if len(page) == 0 {
		result := &Result{}
		s.finish(result, start, "empty")
		return result, nil
	}

	result := &Result{}

	// The source returns newest first; process oldest to newest so that
	// the dedup pass sees retry chains in chronological order.
	for i := len(page) - 1; i >= 0; i-- {
		ev := page[i]

		customer, err := s.directory.GetCustomerByExternalID(ev.CustomerExternalID)
		if err != nil {
			metrics.CyclesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("resolve customer for event %s: %w", ev.ID, err)
		}
		if customer == nil {
			if err := s.skip(ev.ID, "unknown customer "+ev.CustomerExternalID); err != nil {
				metrics.CyclesTotal.WithLabelValues("error").Inc()
				return nil, err
			}
			result.Skipped++
			continue
		}

		account, err := s.directory.GetSubAccountByID(customer.ID, ev.AccountExternalID)
		if err != nil {
			metrics.CyclesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("resolve account for event %s: %w", ev.ID, err)
		}
		if account == nil {
			if err := s.skip(ev.ID, "unknown account "+ev.AccountExternalID); err != nil {
				metrics.CyclesTotal.WithLabelValues("error").Inc()
				return nil, err
			}
			result.Skipped++
			continue
		}

		rec := MapEvent(ev, customer.ID, account.ID, time.Now().UTC())
		if err := s.records.Upsert(&rec); err != nil {
			metrics.CyclesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("persist record %s: %w", rec.ID, err)
		}

		if rec.TraceNumber != "" {
			if err := s.dedupTrace(rec.TraceNumber); err != nil {
				metrics.CyclesTotal.WithLabelValues("error").Inc()
				return nil, err
			}
		}

		result.Processed++
		metrics.EventsProcessed.Inc()
	}

	// Advance the watermark to the newest event of the page, whether or not
	// individual events were skipped; skipped ids live in the dead-letter
	// set and are retried from there.
	if err := s.cursors.Set(CursorKey, page[0].ID); err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("advance cursor: %w", err)
	}

	s.finish(result, start, "ok")
	log.Printf("[sync] Cycle done: processed=%d skipped=%d cursor=%s",
		result.Processed, result.Skipped, page[0].ID)
	return result, nil
}

func (s *Service) skip(eventID, reason string) error {
	log.Printf("[sync] WARNING: skipping event %s: %s", eventID, reason)
	metrics.EventsSkipped.Inc()
	if err := s.skipped.Add(eventID, reason); err != nil {
		return fmt.Errorf("dead-letter event %s: %w", eventID, err)
	}
	return nil
}

// dedupTrace collapses all records sharing a trace number down to the one
// with the greatest occurred_at. The scan keeps the first record in storage
// order on a timestamp tie, and losers go in one bulk delete.
func (s *Service) dedupTrace(traceNumber string) error {
	recs, err := s.records.FindByTraceNumber(traceNumber)
	if err != nil {
		return fmt.Errorf("find trace %s: %w", traceNumber, err)
	}
	if len(recs) <= 1 {
		return nil
	}

	survivor := 0
	for i := 1; i < len(recs); i++ {
		if recs[i].OccurredAt > recs[survivor].OccurredAt {
			survivor = i
		}
	}

	losers := make([]domain.TransactionRecord, 0, len(recs)-1)
	for i := range recs {
		if i != survivor {
			losers = append(losers, recs[i])
		}
	}

	if err := s.records.DeleteMany(losers); err != nil {
		return fmt.Errorf("dedup trace %s: %w", traceNumber, err)
	}
	metrics.DuplicatesDeleted.Add(float64(len(losers)))
	log.Printf("[sync] Dedup trace %s: kept %s, deleted %d",
		traceNumber, recs[survivor].ID, len(losers))
	return nil
}

// RetrySkipped replays the dead-letter set: events whose customer and
// account have since been registered are re-fetched from the source,
// persisted, and dropped from the set. Events the source no longer knows
// are dropped outright.
func (s *Service) RetrySkipped(ctx context.Context) (int, error) {
	pending, err := s.skipped.List(100)
	if err != nil {
		return 0, fmt.Errorf("list skipped: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var done []string
	recovered := 0
	for _, entry := range pending {
		ev, err := s.source.FetchEvent(ctx, entry.EventID)
		if err != nil {
			return recovered, fmt.Errorf("refetch event %s: %w", entry.EventID, err)
		}
		if ev == nil {
			done = append(done, entry.EventID)
			continue
		}

		customer, err := s.directory.GetCustomerByExternalID(ev.CustomerExternalID)
		if err != nil {
			return recovered, fmt.Errorf("resolve customer for event %s: %w", ev.ID, err)
		}
		if customer == nil {
			continue
		}
		account, err := s.directory.GetSubAccountByID(customer.ID, ev.AccountExternalID)
		if err != nil {
			return recovered, fmt.Errorf("resolve account for event %s: %w", ev.ID, err)
		}
		if account == nil {
			continue
		}

		rec := MapEvent(*ev, customer.ID, account.ID, time.Now().UTC())
		if err := s.records.Upsert(&rec); err != nil {
			return recovered, fmt.Errorf("persist record %s: %w", rec.ID, err)
		}
		if rec.TraceNumber != "" {
			if err := s.dedupTrace(rec.TraceNumber); err != nil {
				return recovered, err
			}
		}
		done = append(done, ev.ID)
		recovered++
	}

	if err := s.skipped.Remove(done); err != nil {
		return recovered, fmt.Errorf("clear skipped: %w", err)
	}
	if recovered > 0 {
		log.Printf("[sync] Recovered %d previously skipped events", recovered)
	}
	return recovered, nil
}

// Status reports the watermark and last-cycle summary.
func (s *Service) Status() (*Status, error) {
	cursor, _, err := s.cursors.Get(CursorKey)
	if err != nil {
		return nil, err
	}
	skippedCount, err := s.skipped.Count()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &Status{
		Cursor:       cursor,
		LastRunAt:    s.lastRunAt,
		LastResult:   s.lastResult,
		SkippedCount: skippedCount,
	}, nil
}

func (s *Service) finish(result *Result, start time.Time, outcome string) {
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(float64(time.Since(start).Milliseconds()))
	metrics.LastCycleUnix.SetToCurrentTime()

	s.mu.Lock()
	s.lastRunAt = time.Now().UTC()
	s.lastResult = result
	s.mu.Unlock()
}
