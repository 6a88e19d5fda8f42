package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgesync_cycles_total",
		Help: "Total number of sync cycles, labelled by outcome (ok|empty|error).",
	}, []string{"outcome"})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridgesync_events_processed_total",
		Help: "Total number of activity events mapped and persisted.",
	})

	EventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridgesync_events_skipped_total",
		Help: "Total number of activity events skipped on a resolution miss.",
	})

	DuplicatesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridgesync_duplicates_deleted_total",
		Help: "Total number of records removed by trace-number deduplication.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridgesync_cycle_duration_ms",
		Help:    "Sync cycle duration in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	LastCycleUnix = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridgesync_last_cycle_timestamp_seconds",
		Help: "Unix time of the most recent completed sync cycle.",
	})

	TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridgesync_ticks_skipped_total",
		Help: "Scheduler ticks skipped because a cycle or lease was already active.",
	})
)
