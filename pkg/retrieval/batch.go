package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchConfig holds configuration for running independent QuerySpecs
// concurrently.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of queries in flight at once.
	// Each query's own page loop stays strictly sequential and keeps its
	// own inter-request delay regardless of this value.
	MaxConcurrency int
}

// DefaultBatchConfig returns a conservative default: two queries in flight.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{MaxConcurrency: 2}
}

// BatchResult is the outcome of one QuerySpec in a batch run.
type BatchResult struct {
	Spec  QuerySpec
	Table *AssembledTable
	Err   error
}

// FetchAll runs paginated fetches for independent QuerySpecs through a
// worker pool. A failing spec yields its error in the corresponding result;
// the remaining specs still run, so the caller can persist completed queries
// and decide per-spec continuation. Results are returned in input order.
func (r *Retriever) FetchAll(ctx context.Context, specs []QuerySpec, cfg BatchConfig) []BatchResult {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 2
	}
	if cfg.MaxConcurrency > len(specs) {
		cfg.MaxConcurrency = len(specs)
	}

	start := time.Now()

	log.Info().
		Int("queries", len(specs)).
		Int("max_concurrency", cfg.MaxConcurrency).
		Msg("Starting batch fetch")

	results := make([]BatchResult, len(specs))
	jobs := make(chan int, len(specs))

	for i := range specs {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < cfg.MaxConcurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.batchWorker(ctx, specs, jobs, results, workerID)
		}(w)
	}
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	log.Info().
		Int("queries", len(specs)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results
}

// batchWorker processes query indexes from the job queue. Workers write to
// disjoint result slots, so no locking is needed.
func (r *Retriever) batchWorker(ctx context.Context, specs []QuerySpec, jobs <-chan int, results []BatchResult, workerID int) {
	processed := 0

	for idx := range jobs {
		select {
		case <-ctx.Done():
			results[idx] = BatchResult{Spec: specs[idx], Err: ctx.Err()}
			log.Debug().
				Int("worker_id", workerID).
				Int("queries_processed", processed).
				Msg("Batch worker stopping (context cancelled)")
			continue
		default:
		}

		table, err := r.FetchPaginated(ctx, specs[idx])
		results[idx] = BatchResult{Spec: specs[idx], Table: table, Err: err}

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("query", specs[idx].Label()).
				Msg("Batch query failed")
		}
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("queries_processed", processed).
			Msg("Batch worker completed")
	}
}
