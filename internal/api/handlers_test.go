package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
	"github.com/vaultleap/bridgesync/internal/repository"
	"github.com/vaultleap/bridgesync/internal/scheduler"
	syncsvc "github.com/vaultleap/bridgesync/internal/sync"
)

type fakeSource struct {
	page       []domain.ActivityEvent
	fetchCalls int
}

func (f *fakeSource) FetchPage(ctx context.Context, afterID string) ([]domain.ActivityEvent, error) {
	f.fetchCalls++
	if afterID != "" {
		return []domain.ActivityEvent{}, nil
	}
	return f.page, nil
}

func (f *fakeSource) FetchEvent(ctx context.Context, id string) (*domain.ActivityEvent, error) {
	return nil, nil
}

type testEnv struct {
	srv     *httptest.Server
	source  *fakeSource
	records *repository.RecordRepo
	leases  *repository.LeaseRepo
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeSource, *repository.RecordRepo) {
	env := newTestEnv(t)
	return env.srv, env.source, env.records
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	source := &fakeSource{}
	records := repository.NewRecordRepo(db)
	directory := repository.NewDirectoryRepo(db)
	svc := syncsvc.NewService(source, records,
		repository.NewCursorRepo(db), directory,
		repository.NewSkippedRepo(db, 100))

	if err := directory.UpsertCustomer(&domain.Customer{
		ID: "CUST-1", ExternalID: "cust_abc", Name: "Acme",
	}); err != nil {
		t.Fatal(err)
	}
	if err := directory.UpsertSubAccount(&domain.SubAccount{
		ID: "ACCT-1", CustomerID: "CUST-1", ExternalID: "acct_def",
	}); err != nil {
		t.Fatal(err)
	}

	leases := repository.NewLeaseRepo(db)
	sched := scheduler.New(svc, repository.NewSchedulerRepo(db), leases,
		"bridge-activity-sync", time.Minute, 0)

	srv := httptest.NewServer(NewRouter(records, directory, svc, sched))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, source: source, records: records, leases: leases}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body map[string]string
	if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status: %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestRunSyncAndStatus(t *testing.T) {
	srv, source, _ := newTestServer(t)
	source.page = []domain.ActivityEvent{{
		ID:                 "evt_1",
		Type:               domain.ActivityFundsReceived,
		CustomerExternalID: "cust_abc",
		AccountExternalID:  "acct_def",
		Amount:             "9.99",
		CreatedAt:          "2024-01-01T00:00:00Z",
	}}

	resp, err := http.Post(srv.URL+"/api/v1/sync/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status: %d", resp.StatusCode)
	}
	var result syncsvc.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("processed: want 1 got %d", result.Processed)
	}

	var status syncsvc.Status
	if code := getJSON(t, srv.URL+"/api/v1/sync/status", &status); code != http.StatusOK {
		t.Fatalf("status code: %d", code)
	}
	if status.Cursor != "evt_1" {
		t.Errorf("cursor: want evt_1 got %q", status.Cursor)
	}
}

func TestRunSync_ConflictsWhileCycleActive(t *testing.T) {
	env := newTestEnv(t)
	env.source.page = []domain.ActivityEvent{{
		ID:                 "evt_1",
		Type:               domain.ActivityFundsReceived,
		CustomerExternalID: "cust_abc",
		AccountExternalID:  "acct_def",
		CreatedAt:          "2024-01-01T00:00:00Z",
	}}

	// Another worker holds the lease, as during a scheduled tick.
	if ok, _ := env.leases.Acquire("bridge-activity-sync", "other-worker", time.Minute); !ok {
		t.Fatal("setup acquire failed")
	}

	resp, err := http.Post(env.srv.URL+"/api/v1/sync/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("run status: want 409 got %d", resp.StatusCode)
	}
	if env.source.fetchCalls != 0 {
		t.Errorf("run must not start a cycle, got %d fetches", env.source.fetchCalls)
	}
}

func TestListTransactions(t *testing.T) {
	srv, _, records := newTestServer(t)

	rec := domain.TransactionRecord{
		ID: "evt_1", SourceEventID: "evt_1",
		CustomerID: "CUST-1", AccountID: "ACCT-1",
		Type: domain.ActivityRefund, Amount: 3.5, Currency: "USD",
		OccurredAt: 100,
		CreatedAt:  time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := records.Upsert(&rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var body struct {
		Data  []domain.TransactionRecord `json:"data"`
		Total int                        `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/transactions?type=refund", &body); code != http.StatusOK {
		t.Fatalf("status: %d", code)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Data[0].ID != "evt_1" {
		t.Errorf("list: %+v", body)
	}

	if code := getJSON(t, srv.URL+"/api/v1/transactions/evt_1", nil); code != http.StatusOK {
		t.Errorf("get by id status: %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/v1/transactions/evt_missing", nil); code != http.StatusNotFound {
		t.Errorf("missing id status: %d", code)
	}
}

func TestCreateCustomerAndAccount(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/customers", "application/json",
		strings.NewReader(`{"external_id":"cust_new","name":"Newco"}`))
	if err != nil {
		t.Fatalf("POST customer: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create customer status: %d", resp.StatusCode)
	}
	var customer domain.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if customer.ID == "" || customer.ExternalID != "cust_new" {
		t.Errorf("customer: %+v", customer)
	}

	resp2, err := http.Post(srv.URL+"/api/v1/customers/"+customer.ID+"/accounts",
		"application/json", strings.NewReader(`{"external_id":"acct_new","label":"Ops"}`))
	if err != nil {
		t.Fatalf("POST account: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("create account status: %d", resp2.StatusCode)
	}

	// Missing fields are rejected.
	resp3, err := http.Post(srv.URL+"/api/v1/customers", "application/json",
		strings.NewReader(`{"name":"No External"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid create status: %d", resp3.StatusCode)
	}
}
