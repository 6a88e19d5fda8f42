package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaultleap/bridgesync/internal/domain"
	"github.com/vaultleap/bridgesync/internal/repository"
	"github.com/vaultleap/bridgesync/internal/scheduler"
	syncsvc "github.com/vaultleap/bridgesync/internal/sync"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	records   *repository.RecordRepo
	directory *repository.DirectoryRepo
	syncSvc   *syncsvc.Service
	sched     *scheduler.Scheduler
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- sync ---

func (h *Handlers) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncSvc.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RunSync triggers one sync cycle synchronously. It goes through the same
// lock and lease as a scheduled tick, so a manual run can never overlap an
// in-flight cycle; a busy cycle answers 409.
func (h *Handlers) RunSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.RunNow(r.Context())
	if errors.Is(err, scheduler.ErrBusy) {
		writeError(w, http.StatusConflict, "a sync cycle is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- transactions ---

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.RecordFilter{
		Type:        q.Get("type"),
		CustomerID:  q.Get("customer_id"),
		TraceNumber: q.Get("trace_number"),
		Page:        parseIntDefault(q.Get("page"), 1),
		Limit:       parseIntDefault(q.Get("limit"), 50),
	}

	recs, total, err := h.records.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []domain.TransactionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  recs,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.records.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "transaction not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// --- directory ---

func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.directory.ListCustomers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

type createCustomerRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.ExternalID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "external_id and name are required")
		return
	}

	customer := &domain.Customer{
		ID:         "CUST-" + uuid.NewString(),
		ExternalID: req.ExternalID,
		Name:       req.Name,
	}
	if err := h.directory.UpsertCustomer(customer); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

type createSubAccountRequest struct {
	ExternalID string `json:"external_id"`
	Label      string `json:"label"`
}

func (h *Handlers) CreateSubAccount(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	var req createSubAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}

	account := &domain.SubAccount{
		ID:         "ACCT-" + uuid.NewString(),
		CustomerID: customerID,
		ExternalID: req.ExternalID,
		Label:      req.Label,
	}
	if err := h.directory.UpsertSubAccount(account); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, account)
}
