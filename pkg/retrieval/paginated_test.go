package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openairdata/campd-client/internal/testutil"
	"github.com/openairdata/campd-client/pkg/client"
)

// newTestRetriever builds a retriever against the mock server with the
// inter-request delay disabled.
func newTestRetriever(t *testing.T, baseURL string, observer Observer) *Retriever {
	t.Helper()

	cfg := client.DefaultConfig("test-key")
	cfg.BaseURL = baseURL

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return New(c, Config{PageSize: 100, PageDelay: 0}, observer)
}

// recordingObserver captures events for assertions.
type recordingObserver struct {
	mu         sync.Mutex
	started    int
	totals     []int
	pages      []int
	entries    []int
	advisories []string
	finished   []error
}

func (o *recordingObserver) QueryStarted(spec QuerySpec, totalRecords, totalPages int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
	o.totals = append(o.totals, totalRecords)
}

func (o *recordingObserver) PageFetched(spec QuerySpec, page, rows int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pages = append(o.pages, rows)
}

func (o *recordingObserver) EntryDownloaded(entry CatalogEntry, rows int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, rows)
}

func (o *recordingObserver) WindowAdvisory(spec QuerySpec, window time.Duration, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.advisories = append(o.advisories, message)
}

func (o *recordingObserver) QueryFinished(spec QuerySpec, rows int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, err)
}

// makeRows generates n JSON object literals with sequential IDs.
func makeRows(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"facilityId": %d, "stateCode": "CA"}`, i+1)
	}
	return rows
}

func TestFetchPaginated_ZeroTotal(t *testing.T) {
	mock := testutil.NewMockCAMPD()
	defer mock.Close()

	mock.SetPaginatedRows("/annual", nil)

	r := newTestRetriever(t, mock.URL(), nil)
	spec := NewPaginatedQuery("empty", "/annual", nil, 100)

	table, err := r.FetchPaginated(context.Background(), spec)
	if err != nil {
		t.Fatalf("FetchPaginated failed: %v", err)
	}

	if table.NumRows() != 0 {
		t.Errorf("Expected 0 rows, got %d", table.NumRows())
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected exactly 1 request (the probe), got %d", mock.GetRequestCount())
	}
}

func TestFetchPaginated_AllPages(t *testing.T) {
	mock := testutil.NewMockCAMPD()
	defer mock.Close()

	mock.SetPaginatedRows("/annual", makeRows(150))

	obs := &recordingObserver{}
	r := newTestRetriever(t, mock.URL(), obs)

	spec := NewPaginatedQuery("annual-CA", "/annual",
		Filters{}.Add("year", "1995", "1996").Add("stateCode", "CA"), 100)

	table, err := r.FetchPaginated(context.Background(), spec)
	if err != nil {
		t.Fatalf("FetchPaginated failed: %v", err)
	}

	// 1 probe + ceil(150/100) = 2 pages
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected 3 requests, got %d", mock.GetRequestCount())
	}
	if table.NumRows() != 150 {
		t.Errorf("Expected 150 rows, got %d", table.NumRows())
	}

	// Page-then-row order preserved
	first := table.Cell(0, "facilityId")
	last := table.Cell(149, "facilityId")
	if fmt.Sprint(first) != "1" || fmt.Sprint(last) != "150" {
		t.Errorf("Row order not preserved: first=%v last=%v", first, last)
	}

	if len(obs.totals) != 1 || obs.totals[0] != 150 {
		t.Errorf("Expected QueryStarted with total 150, got %v", obs.totals)
	}
	if len(obs.pages) != 2 {
		t.Errorf("Expected 2 PageFetched events, got %d", len(obs.pages))
	}

	// Multi-valued filters are pipe-joined and the key is injected
	probeURL := mock.RequestedURLs[0]
	if !strings.Contains(probeURL, "year=1995%7C1996") {
		t.Errorf("Expected pipe-joined year filter in %s", probeURL)
	}
	if !strings.Contains(probeURL, "stateCode=CA") {
		t.Errorf("Expected stateCode filter in %s", probeURL)
	}
	if !strings.Contains(probeURL, "api_key=test-key") {
		t.Errorf("Expected api_key parameter in %s", probeURL)
	}
}

func TestFetchPaginated_EmptyPageStopsEarly(t *testing.T) {
	mock := testutil.NewMockCAMPD()
	defer mock.Close()

	// The header promises 300 records but only 100 exist: page 2 is empty
	// and pages past it must never be requested.
	mock.SetHandler("/annual", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-total-count", "300")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte("[" + strings.Join(makeRows(100), ",") + "]"))
			return
		}
		w.Write([]byte("[]"))
	})

	r := newTestRetriever(t, mock.URL(), nil)
	spec := NewPaginatedQuery("drift", "/annual", nil, 100)

	table, err := r.FetchPaginated(context.Background(), spec)
	if err != nil {
		t.Fatalf("FetchPaginated failed: %v", err)
	}

	if table.NumRows() != 100 {
		t.Errorf("Expected 100 rows, got %d", table.NumRows())
	}
	// probe + page 1 + empty page 2; page 3 never requested
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected 3 requests, got %d", mock.GetRequestCount())
	}
}

func TestFetchPaginated_RemoteErrorDiscardsPartialResults(t *testing.T) {
	mock := testutil.NewMockCAMPD()
	defer mock.Close()

	mock.SetHandler("/annual", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"code": "EASEY-500", "message": "database unavailable"}}`))
			return
		}
		w.Header().Set("x-total-count", "150")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("[" + strings.Join(makeRows(100), ",") + "]"))
	})

	obs := &recordingObserver{}
	r := newTestRetriever(t, mock.URL(), obs)
	spec := NewPaginatedQuery("failing", "/annual", nil, 100)

	table, err := r.FetchPaginated(context.Background(), spec)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if table != nil {
		t.Errorf("Expected no partial table, got %d rows", table.NumRows())
	}

	var remoteErr *client.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("Expected RemoteError, got %T: %v", err, err)
	}
	if remoteErr.Code != "EASEY-500" {
		t.Errorf("Expected code EASEY-500, got %s", remoteErr.Code)
	}
	if remoteErr.Message != "database unavailable" {
		t.Errorf("Expected decoded message, got %q", remoteErr.Message)
	}

	// Error context names the page
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("Expected page context in error, got %v", err)
	}

	if len(obs.finished) != 1 || obs.finished[0] == nil {
		t.Errorf("Expected QueryFinished with error, got %v", obs.finished)
	}
}

func TestFetchPaginated_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name       string
		totalCount string
	}{
		{name: "missing total count", totalCount: ""},
		{name: "non-numeric total count", totalCount: "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCAMPD()
			defer mock.Close()

			mock.SetHandler("/annual", func(w http.ResponseWriter, r *http.Request) {
				if tt.totalCount != "" {
					w.Header().Set("x-total-count", tt.totalCount)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("[]"))
			})

			r := newTestRetriever(t, mock.URL(), nil)
			spec := NewPaginatedQuery("bad-metadata", "/annual", nil, 100)

			_, err := r.FetchPaginated(context.Background(), spec)
			var protoErr *ProtocolError
			if !errors.As(err, &protoErr) {
				t.Fatalf("Expected ProtocolError, got %T: %v", err, err)
			}
			if protoErr.Header != TotalCountHeader {
				t.Errorf("Expected header %s, got %s", TotalCountHeader, protoErr.Header)
			}
		})
	}
}

func TestFetchPaginated_RespectsPageDelay(t *testing.T) {
	mock := testutil.NewMockCAMPD()
	defer mock.Close()

	mock.SetPaginatedRows("/annual", makeRows(150))

	cfg := client.DefaultConfig("test-key")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	r := New(c, Config{PageSize: 100, PageDelay: 50 * time.Millisecond}, nil)
	spec := NewPaginatedQuery("delayed", "/annual", nil, 100)

	start := time.Now()
	if _, err := r.FetchPaginated(context.Background(), spec); err != nil {
		t.Fatalf("FetchPaginated failed: %v", err)
	}

	// Two page requests after the probe, each preceded by the delay
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected at least 100ms of pacing, finished in %v", elapsed)
	}
}

func TestFetchPaginated_ContextCancellation(t *testing.T) {
	mock := testutil.NewMockCAMPD()
	defer mock.Close()

	mock.SetPaginatedRows("/annual", makeRows(150))

	cfg := client.DefaultConfig("test-key")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	r := New(c, Config{PageSize: 100, PageDelay: time.Hour}, nil)
	spec := NewPaginatedQuery("cancelled", "/annual", nil, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = r.FetchPaginated(ctx, spec)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
