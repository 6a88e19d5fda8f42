package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchPage_QueryParams(t *testing.T) {
	var gotQuery map[string][]string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("Api-Key")
		w.Write([]byte(`{"count":1,"data":[{"id":"evt_1","type":"funds_received","customer_id":"c","account_id":"a","created_at":"2024-01-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second, 100)
	events, err := c.FetchPage(context.Background(), "evt_0")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if got := gotQuery["limit"]; len(got) != 1 || got[0] != "100" {
		t.Errorf("limit param: got %v", got)
	}
	if got := gotQuery["starting_after"]; len(got) != 1 || got[0] != "evt_0" {
		t.Errorf("starting_after param: got %v", got)
	}
	if gotKey != "secret" {
		t.Errorf("api key header: got %q", gotKey)
	}
	if len(events) != 1 || events[0].ID != "evt_1" {
		t.Errorf("events: got %+v", events)
	}
}

func TestFetchPage_NoCursorOmitsStartingAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("starting_after") {
			t.Error("starting_after must be omitted on backfill")
		}
		w.Write([]byte(`{"count":0,"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 50)
	events, err := c.FetchPage(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if events == nil {
		t.Fatal("empty page must be a non-nil slice")
	}
	if len(events) != 0 {
		t.Errorf("expected empty page, got %d events", len(events))
	}
}

func TestFetchPage_NullDataBecomesEmptySlice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0,"data":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 100)
	events, err := c.FetchPage(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("want non-nil empty slice, got %v", events)
	}
}

func TestFetchPage_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 100)
	_, err := c.FetchPage(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransientError
	if !errors.As(err, &te) {
		t.Errorf("5xx should be transient, got %T: %v", err, err)
	}
}

func TestFetchPage_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 100)
	_, err := c.FetchPage(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransientError
	if errors.As(err, &te) {
		t.Errorf("4xx must not be transient: %v", err)
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Errorf("error should carry the response body snippet, got %v", err)
	}
}

func TestFetchPage_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "", time.Second, 100)
	_, err := c.FetchPage(context.Background(), "")
	var te *TransientError
	if !errors.As(err, &te) {
		t.Errorf("connection failure should be transient, got %v", err)
	}
}

func TestFetchEvent_NotFoundReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 100)
	ev, err := c.FetchEvent(context.Background(), "evt_gone")
	if err != nil {
		t.Fatalf("404 should not be an error: %v", err)
	}
	if ev != nil {
		t.Errorf("want nil event, got %+v", ev)
	}
}

func TestFetchEvent_ReturnsEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/evt_7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"evt_7","type":"refund","customer_id":"c","account_id":"a","amount":"3.50","created_at":"2024-02-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 100)
	ev, err := c.FetchEvent(context.Background(), "evt_7")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ev == nil || ev.ID != "evt_7" || ev.Amount != "3.50" {
		t.Errorf("event: got %+v", ev)
	}
}
