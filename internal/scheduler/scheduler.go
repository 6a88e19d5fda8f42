// Package scheduler drives the recurring sync job: a self-healing persisted
// job definition plus a ticker loop that runs at most one cycle at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaultleap/bridgesync/internal/bridge"
	"github.com/vaultleap/bridgesync/internal/domain"
	"github.com/vaultleap/bridgesync/internal/metrics"
	"github.com/vaultleap/bridgesync/internal/repository"
	syncsvc "github.com/vaultleap/bridgesync/internal/sync"
)

// Scheduler owns the tick loops for the sync cycle and the dead-letter
// retry pass. Overlap protection is two-layered: an in-process TryLock
// against a still-running cycle, and a store-backed lease against other
// worker processes sharing the database.
type Scheduler struct {
	svc        *syncsvc.Service
	schedulers *repository.SchedulerRepo
	leases     *repository.LeaseRepo

	jobName       string
	owner         string
	leaseTTL      time.Duration
	retryInterval time.Duration

	runMu      sync.Mutex
	intervalCh chan time.Duration
}

// New creates a scheduler with a fresh owner identity for lease ownership.
func New(
	svc *syncsvc.Service,
	schedulers *repository.SchedulerRepo,
	leases *repository.LeaseRepo,
	jobName string,
	leaseTTL, retryInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		svc:           svc,
		schedulers:    schedulers,
		leases:        leases,
		jobName:       jobName,
		owner:         uuid.NewString(),
		leaseTTL:      leaseTTL,
		retryInterval: retryInterval,
		intervalCh:    make(chan time.Duration, 1),
	}
}

func (s *Scheduler) jobKey() string {
	return "scheduler:" + s.jobName
}

// EnsureRegistered reconciles the persisted job definition with the desired
// interval: a definition registered with a different interval is removed
// first, then the definition is upserted under its stable key. Re-running
// with an unchanged interval is a no-op beyond the upsert.
func (s *Scheduler) EnsureRegistered(interval time.Duration) error {
	every := interval.Milliseconds()

	defs, err := s.schedulers.List()
	if err != nil {
		return err
	}

	id := ""
	for _, d := range defs {
		if d.Key != s.jobKey() && d.Name != s.jobName {
			continue
		}
		if d.Every != every {
			log.Printf("[scheduler] Interval changed for %s (%dms -> %dms), removing stale definition",
				s.jobName, d.Every, every)
			if err := s.schedulers.Remove(d.Key); err != nil {
				return err
			}
		} else {
			id = d.ID
		}
		break
	}
	if id == "" {
		id = uuid.NewString()
	}

	return s.schedulers.Upsert(&domain.JobScheduler{
		ID:    id,
		Name:  s.jobName,
		Every: every,
		Key:   s.jobKey(),
	})
}

// Start launches the tick loops and returns. Both loops exit when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	go s.runLoop(ctx, interval)
	go s.retryLoop(ctx)
}

// SetInterval re-registers the job definition and resets the tick loop.
// Wired to config hot reload.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if err := s.EnsureRegistered(interval); err != nil {
		log.Printf("[scheduler] WARNING: re-register %s: %v", s.jobName, err)
	}
	select {
	case s.intervalCh <- interval:
	default:
	}
}

func (s *Scheduler) runLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-s.intervalCh:
			ticker.Reset(d)
			log.Printf("[scheduler] Tick interval now %s", d)
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// ErrBusy is returned by RunNow when a cycle is already active, locally or
// under another worker's lease.
var ErrBusy = errors.New("sync cycle already active")

// RunNow executes one guarded sync cycle: it takes the in-process lock and
// the store lease exactly like a scheduled tick, so manual and scheduled
// runs can never overlap. Returns ErrBusy instead of waiting.
func (s *Scheduler) RunNow(ctx context.Context) (*syncsvc.Result, error) {
	if !s.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.runMu.Unlock()

	ok, err := s.leases.Acquire(s.jobName, s.owner, s.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer func() {
		if err := s.leases.Release(s.jobName, s.owner); err != nil {
			log.Printf("[scheduler] WARNING: lease release failed: %v", err)
		}
	}()

	return s.svc.Run(ctx)
}

// Tick runs one sync cycle unless one is already active.
func (s *Scheduler) Tick(ctx context.Context) {
	_, err := s.RunNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		log.Printf("[scheduler] Tick skipped: cycle already active")
		metrics.TicksSkipped.Inc()
	default:
		var te *bridge.TransientError
		if errors.As(err, &te) {
			log.Printf("[scheduler] WARNING: transient fetch failure, retrying next tick: %v", err)
			return
		}
		log.Printf("[scheduler] ERROR: sync cycle failed: %v", err)
	}
}

func (s *Scheduler) retryLoop(ctx context.Context) {
	if s.retryInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.svc.RetrySkipped(ctx); err != nil {
				log.Printf("[scheduler] WARNING: skipped-event retry failed: %v", err)
			}
		}
	}
}
