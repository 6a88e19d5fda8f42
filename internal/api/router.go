package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaultleap/bridgesync/internal/repository"
	"github.com/vaultleap/bridgesync/internal/scheduler"
	syncsvc "github.com/vaultleap/bridgesync/internal/sync"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	records *repository.RecordRepo,
	directory *repository.DirectoryRepo,
	syncService *syncsvc.Service,
	sched *scheduler.Scheduler,
) http.Handler {
	h := &Handlers{
		records:   records,
		directory: directory,
		syncSvc:   syncService,
		sched:     sched,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Sync.
		r.Get("/sync/status", h.GetSyncStatus)
		r.Post("/sync/run", h.RunSync)

		// Transactions.
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", h.GetTransaction)

		// Directory.
		r.Get("/customers", h.ListCustomers)
		r.Post("/customers", h.CreateCustomer)
		r.Post("/customers/{id}/accounts", h.CreateSubAccount)
	})

	return r
}
