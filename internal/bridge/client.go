// Package bridge is the HTTP client for the Bridge activity feed.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vaultleap/bridgesync/internal/domain"
)

// TransientError marks a fetch failure that the next scheduled tick may
// retry: network errors, timeouts, and 5xx responses. The sync cycle aborts
// without advancing the cursor, so a retry resumes from the same point.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient fetch error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Client fetches pages of activity events from the Bridge API.
type Client struct {
	baseURL   string
	apiKey    string
	pageLimit int
	http      *http.Client
}

// NewClient builds a client with an explicit request timeout; an expired
// timeout surfaces as a TransientError like any other network failure.
func NewClient(baseURL, apiKey string, timeout time.Duration, pageLimit int) *Client {
	if pageLimit <= 0 || pageLimit > 100 {
		pageLimit = 100
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: timeout},
	}
}

type pageEnvelope struct {
	Count int                    `json:"count"`
	Data  []domain.ActivityEvent `json:"data"`
}

// FetchPage returns the next page of events, newest first. When afterID is
// non-empty only events strictly after that id are returned. An empty page
// is a non-nil empty slice, never nil.
func (c *Client) FetchPage(ctx context.Context, afterID string) ([]domain.ActivityEvent, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageLimit))
	if afterID != "" {
		q.Set("starting_after", afterID)
	}

	var env pageEnvelope
	if err := c.get(ctx, "/transactions?"+q.Encode(), &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []domain.ActivityEvent{}, nil
	}
	return env.Data, nil
}

// FetchEvent retrieves a single event by id, used by the dead-letter retry
// pass. Returns (nil, nil) when the source no longer knows the id.
func (c *Client) FetchEvent(ctx context.Context, id string) (*domain.ActivityEvent, error) {
	var ev domain.ActivityEvent
	err := c.get(ctx, "/transactions/"+url.PathEscape(id), &ev)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("bridge api status %d: %s", e.code, e.body)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &TransientError{Err: &statusError{code: resp.StatusCode}}
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &statusError{code: resp.StatusCode, body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
