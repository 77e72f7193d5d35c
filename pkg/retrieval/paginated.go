package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
)

// TotalCountHeader carries the authoritative total record count for a
// paginated query. Only the probe response's value is trusted; it is never
// re-read from subsequent pages.
const TotalCountHeader = "x-total-count"

// FetchPaginated retrieves one paginated query and assembles all pages into
// a single table.
//
// A probe request with page=1 discovers the total record count from the
// response header; the page loop then re-fetches pages 1..ceil(total/size)
// strictly sequentially with the configured inter-request delay. A page that
// decodes to zero rows ends the loop early, guarding against drift between
// the probed total and what the service still holds. Any error-range status
// aborts the whole query; rows accumulated so far are discarded.
func (r *Retriever) FetchPaginated(ctx context.Context, spec QuerySpec) (*AssembledTable, error) {
	pageSize := spec.PageSize
	if pageSize <= 0 {
		pageSize = r.config.PageSize
	}

	query := url.Values{}
	spec.Filters.Encode(query)
	query.Set("page", "1")
	query.Set("perPage", strconv.Itoa(pageSize))

	// Probe for the authoritative total
	total, err := r.probe(ctx, spec, query)
	if err != nil {
		queriesTotal.WithLabelValues("paginated", "error").Inc()
		r.observer.QueryFinished(spec, 0, err)
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	r.observer.QueryStarted(spec, total, totalPages)

	table := NewAssembledTable()
	if total == 0 {
		// Nothing to fetch beyond the probe
		queriesTotal.WithLabelValues("paginated", "ok").Inc()
		r.observer.QueryFinished(spec, 0, nil)
		return table, nil
	}

	for page := 1; page <= totalPages; page++ {
		if err := r.pause(ctx); err != nil {
			queriesTotal.WithLabelValues("paginated", "error").Inc()
			r.observer.QueryFinished(spec, 0, err)
			return nil, fmt.Errorf("query %s: %w", spec.Label(), err)
		}

		query.Set("page", strconv.Itoa(page))
		resp, err := r.client.Get(ctx, spec.Endpoint, query)
		if err != nil {
			wrapped := fmt.Errorf("query %s page %d: %w", spec.Label(), page, err)
			queriesTotal.WithLabelValues("paginated", "error").Inc()
			r.observer.QueryFinished(spec, 0, wrapped)
			return nil, wrapped
		}

		rows, err := decodeRows(resp.Body)
		resp.Body.Close()
		if err != nil {
			wrapped := fmt.Errorf("query %s page %d: %w", spec.Label(), page, err)
			queriesTotal.WithLabelValues("paginated", "error").Inc()
			r.observer.QueryFinished(spec, 0, wrapped)
			return nil, wrapped
		}

		if len(rows) == 0 {
			// The service ran out of data before the probed total predicted;
			// treat as end-of-data rather than requesting further pages.
			r.logger.Debug().
				Str("query", spec.Label()).
				Int("page", page).
				Int("total_pages", totalPages).
				Msg("Empty page before planned end - stopping early")
			break
		}

		table.AppendAll(rows)
		pagesFetchedTotal.WithLabelValues("paginated").Inc()
		r.observer.PageFetched(spec, page, len(rows))
	}

	rowsFetchedTotal.WithLabelValues("paginated").Add(float64(table.NumRows()))
	queriesTotal.WithLabelValues("paginated", "ok").Inc()
	r.observer.QueryFinished(spec, table.NumRows(), nil)

	return table, nil
}

// probe issues the page=1 request and reads the total record count header.
// The probe body is discarded; the page loop re-fetches page 1 so every page
// flows through the same path.
func (r *Retriever) probe(ctx context.Context, spec QuerySpec, query url.Values) (int, error) {
	resp, err := r.client.Get(ctx, spec.Endpoint, query)
	if err != nil {
		return 0, fmt.Errorf("query %s probe: %w", spec.Label(), err)
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)

	totalStr := resp.Header.Get(TotalCountHeader)
	if totalStr == "" {
		return 0, fmt.Errorf("query %s probe: %w", spec.Label(),
			&ProtocolError{Header: TotalCountHeader, Reason: "missing"})
	}

	total, err := strconv.Atoi(totalStr)
	if err != nil || total < 0 {
		return 0, fmt.Errorf("query %s probe: %w", spec.Label(),
			&ProtocolError{Header: TotalCountHeader, Reason: fmt.Sprintf("non-numeric value %q", totalStr)})
	}

	return total, nil
}
