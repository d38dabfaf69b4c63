// Package testutil provides a mock Yay! API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Record is one list item served by a paged mock endpoint. It must carry
// an "id" field.
type Record map[string]any

// ListFixture configures a cursor-paginated mock endpoint.
type ListFixture struct {
	// Key is the JSON field holding the records, e.g. "users".
	Key string

	// CursorParam is the query parameter that carries the cursor.
	CursorParam string

	// NextField, when set, names a top-level field holding the id of the
	// last served record while more records remain, e.g. "last_follow_id".
	NextField string

	// CursorField is the record field the cursor refers to (default "id").
	CursorField string

	Records []Record
}

// MockYay is a configurable mock Yay! server.
type MockYay struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount int
	pathCounts   map[string]int
	queries      map[string][]url.Values
	lastHeader   http.Header
}

// NewMockYay starts a mock server. Unknown paths answer 404 with a
// service-style failure body.
func NewMockYay() *MockYay {
	mock := &MockYay{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
		queries:    make(map[string][]url.Values),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.queries[r.URL.Path] = append(mock.queries[r.URL.Path], r.URL.Query())
		mock.lastHeader = r.Header.Clone()
		handler, ok := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}
		WriteJSON(w, http.StatusNotFound, map[string]any{"result": "error", "message": "not found"})
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockYay) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockYay) Close() {
	m.server.Close()
}

// Reset clears all request tracking.
func (m *MockYay) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.queries = make(map[string][]url.Values)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a path.
func (m *MockYay) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockYay) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON answers 200 with v encoded as JSON.
func (m *MockYay) SetJSON(path string, v any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, v)
	})
}

// SetList serves list.Records in pages. The page size comes from the
// "number" query parameter and a cursor resumes after the record it names.
func (m *MockYay) SetList(path string, list ListFixture) {
	field := list.CursorField
	if field == "" {
		field = "id"
	}

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		number, err := strconv.Atoi(q.Get("number"))
		if err != nil || number <= 0 {
			number = 100
		}

		start := 0
		if cursor := q.Get(list.CursorParam); cursor != "" {
			start = len(list.Records)
			for i, rec := range list.Records {
				if fmt.Sprint(rec[field]) == cursor {
					start = i + 1
					break
				}
			}
		}
		end := min(start+number, len(list.Records))

		page := list.Records[start:end]
		body := map[string]any{list.Key: page}
		if list.NextField != "" {
			body[list.NextField] = 0
			if end < len(list.Records) && len(page) > 0 {
				body[list.NextField] = page[len(page)-1][field]
			}
		}
		WriteJSON(w, http.StatusOK, body)
	})
}

// RequestCount returns the number of requests served.
func (m *MockYay) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests served for one path.
func (m *MockYay) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// Queries returns the query parameters of every request to path, in order.
func (m *MockYay) Queries(path string) []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.queries[path]...)
}

// LastHeader returns the headers of the most recent request.
func (m *MockYay) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader.Clone()
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Users returns n user records with ids 1..n.
func Users(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"id": i + 1, "nickname": fmt.Sprintf("user-%d", i+1)}
	}
	return out
}

// NewErrorResponse builds a service failure response.
func NewErrorResponse(status, code int, message string) MockResponse {
	body, _ := json.Marshal(map[string]any{
		"result":     "error",
		"message":    message,
		"error_code": code,
	})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse builds a 429 response with a Retry-After hint.
func NewRateLimitResponse(retryAfter time.Duration) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, 0, "too many requests")
	resp.Headers["Retry-After"] = strconv.Itoa(int(retryAfter.Seconds()))
	return resp
}
