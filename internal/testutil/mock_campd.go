// Package testutil provides testing utilities for the CAMPD client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCAMPD is a configurable mock API gateway for testing.
type MockCAMPD struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	RequestedURLs     []string
	LastRequestHeader http.Header
}

// NewMockCAMPD creates a new mock API server.
func NewMockCAMPD() *MockCAMPD {
	mock := &MockCAMPD{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestedURLs = append(mock.RequestedURLs, r.URL.String())
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCAMPD) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCAMPD) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCAMPD) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestedURLs = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCAMPD) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCAMPD) SetResponse(path string, resp MockResponse) {
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

// SetPaginatedRows configures a path to serve the given JSON object literals
// as a paginated row endpoint: the x-total-count header reports len(rowJSON)
// and page/perPage parameters slice into the rows.
func (m *MockCAMPD) SetPaginatedRows(path string, rowJSON []string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 {
			perPage = 100
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(rowJSON) {
			start = len(rowJSON)
		}
		if end > len(rowJSON) {
			end = len(rowJSON)
		}

		setGatewayHeaders(w)
		w.Header().Set("x-total-count", strconv.Itoa(len(rowJSON)))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		w.Write([]byte("["))
		for i, row := range rowJSON[start:end] {
			if i > 0 {
				w.Write([]byte(","))
			}
			w.Write([]byte(row))
		}
		w.Write([]byte("]"))
	})
}

// PathRequestCount returns how many requests hit the given path.
func (m *MockCAMPD) PathRequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, u := range m.RequestedURLs {
		if len(u) >= len(path) && u[:len(path)] == path {
			count++
		}
	}
	return count
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCAMPD) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler provides a default gateway-like response.
func (m *MockCAMPD) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setGatewayHeaders(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`[]`))
}

// setGatewayHeaders adds the rate-limit headers the hosting gateway sends
// on every response.
func setGatewayHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "1000")
	w.Header().Set("X-RateLimit-Remaining", "995")
}

// NewRowsResponse creates a 200 response with a row body and total count header.
func NewRowsResponse(totalCount int, body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"x-total-count":         strconv.Itoa(totalCount),
			"X-RateLimit-Limit":     "1000",
			"X-RateLimit-Remaining": "995",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewWindowResponse creates a 200 streaming response with field mappings.
func NewWindowResponse(fieldMappingsJSON, body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"x-field-mappings":      fieldMappingsJSON,
			"X-RateLimit-Limit":     "1000",
			"X-RateLimit-Remaining": "995",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewErrorResponse creates an error-range response with the API error body.
func NewErrorResponse(statusCode int, code, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body:       fmt.Sprintf(`{"error": {"code": %q, "message": %q}}`, code, message),
		Headers: map[string]string{
			"X-RateLimit-Limit":     "1000",
			"X-RateLimit-Remaining": "995",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewQuotaExceededResponse creates a 429 Too Many Requests response.
func NewQuotaExceededResponse() MockResponse {
	return NewErrorResponse(http.StatusTooManyRequests, "OVER_RATE_LIMIT", "API rate limit exceeded")
}

// NewCatalogResponse creates a 200 response with a bulk catalog body.
func NewCatalogResponse(catalogJSON string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       catalogJSON,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "1000",
			"X-RateLimit-Remaining": "995",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewBulkFileResponse creates a 200 response serving a CSV payload the way
// the bulk file host does, including an ETag for conditional requests.
func NewBulkFileResponse(csvBody string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       csvBody,
		Headers: map[string]string{
			"Content-Type":  "text/csv",
			"ETag":          `"bulk-etag-123"`,
			"Last-Modified": time.Now().Add(-24 * time.Hour).UTC().Format(http.TimeFormat),
		},
	}
}
