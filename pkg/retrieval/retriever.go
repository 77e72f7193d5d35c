package retrieval

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/openairdata/campd-client/pkg/client"
	"github.com/openairdata/campd-client/pkg/logging"
)

// Prometheus metrics for retrieval operations.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campd_retrieval_pages_total",
		Help: "Total pages fetched by retrieval mode",
	}, []string{"mode"})

	rowsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campd_retrieval_rows_total",
		Help: "Total rows assembled by retrieval mode",
	}, []string{"mode"})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campd_retrieval_queries_total",
		Help: "Total queries by retrieval mode and outcome",
	}, []string{"mode", "outcome"})
)

// Config holds retrieval configuration.
type Config struct {
	// PageSize is the default per-page row count for paginated queries
	// that don't set their own (default 100).
	PageSize int

	// PageDelay is the fixed minimum delay between successive requests of
	// one query. The observed default of one second is preserved.
	PageDelay time.Duration

	// WindowLimit is the recommended maximum span for streaming windows.
	// Wider windows still run but emit an advisory (default 31 days).
	WindowLimit time.Duration
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    100,
		PageDelay:   1 * time.Second,
		WindowLimit: 31 * 24 * time.Hour,
	}
}

// Retriever fetches, paginates, and assembles datasets from the remote API.
// One Retriever may serve many QuerySpecs; it holds no per-query state.
type Retriever struct {
	client   *client.Client
	config   Config
	observer Observer
	logger   zerolog.Logger
}

// New creates a Retriever. A nil observer disables progress events.
func New(c *client.Client, cfg Config, observer Observer) *Retriever {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.WindowLimit <= 0 {
		cfg.WindowLimit = 31 * 24 * time.Hour
	}
	if observer == nil {
		observer = NopObserver{}
	}

	return &Retriever{
		client:   c,
		config:   cfg,
		observer: observer,
		logger:   logging.NewLogger("retrieval"),
	}
}

// pause enforces the minimum inter-request delay for one query's loop,
// honoring context cancellation.
func (r *Retriever) pause(ctx context.Context) error {
	if r.config.PageDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.config.PageDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
