package offlinecache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Stores manages a set of named cache stores. Implementations must make Open
// idempotent: opening a name that already exists returns a handle to the same
// underlying store.
type Stores interface {
	// Open returns a handle to the named store, creating it on first use
	Open(ctx context.Context, name string) (Store, error)

	// Names lists every store name currently known to the backend
	Names(ctx context.Context) ([]string, error)

	// Drop removes the named store and all of its entries
	Drop(ctx context.Context, name string) error
}

// Store is a handle to a single named cache store, keyed by request identity.
type Store interface {
	// Get retrieves a cached response by identity
	Get(ctx context.Context, id string) (*CachedResponse, error)

	// Put stores a response under the given identity, replacing any existing entry
	Put(ctx context.Context, id string, response *CachedResponse) error

	// Delete removes a single entry by identity
	Delete(ctx context.Context, id string) error
}

// CachedResponse represents a cached HTTP response
type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Identity builds the cache lookup key for a request: its method plus the
// absolute URL it targets.
func Identity(r *http.Request) string {
	return r.Method + " " + r.URL.String()
}

// Snapshot copies a live response into a CachedResponse. The response body is
// consumed and replaced so the response remains usable by the caller.
func Snapshot(resp *http.Response) (*CachedResponse, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &CachedResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       body,
		FetchedAt:  time.Now(),
	}, nil
}

// Response materializes a cached response for the given request.
func (c *CachedResponse) Response(r *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", c.StatusCode, http.StatusText(c.StatusCode)),
		StatusCode:    c.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        c.Headers.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       r,
	}
}
