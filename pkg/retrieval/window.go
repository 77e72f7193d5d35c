package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// FieldMappingsHeader advertises the meaning of each column in a
// streaming-window response. Its value is itself JSON.
const FieldMappingsHeader = "x-field-mappings"

// FieldMapping describes one column of a streaming response: the
// human-readable label and the column name carrying it.
type FieldMapping struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FetchWindow retrieves one time-boxed streaming query: a single request
// bounded by the spec's inclusive date range, no pagination.
//
// Windows wider than the configured limit emit a non-fatal advisory through
// the observer; the request is still attempted because the remote service,
// not this component, decides whether the window is actually too large.
// Alongside the table it returns the field-name mappings advertised by the
// response so callers can validate schema assumptions.
func (r *Retriever) FetchWindow(ctx context.Context, spec QuerySpec) (*AssembledTable, []FieldMapping, error) {
	if spec.Window() > r.config.WindowLimit {
		r.observer.WindowAdvisory(spec, spec.Window(),
			"Requested window exceeds the recommended size for streaming mode; prefer bulk or paginated retrieval")
	}

	query := url.Values{}
	spec.Filters.Encode(query)
	query.Set("beginDate", spec.BeginDate.Format(DateFormat))
	query.Set("endDate", spec.EndDate.Format(DateFormat))

	r.observer.QueryStarted(spec, 0, 0)

	resp, err := r.client.Get(ctx, spec.Endpoint, query)
	if err != nil {
		wrapped := fmt.Errorf("query %s window: %w", spec.Label(), err)
		queriesTotal.WithLabelValues("window", "error").Inc()
		r.observer.QueryFinished(spec, 0, wrapped)
		return nil, nil, wrapped
	}
	defer resp.Body.Close()

	mappings, err := parseFieldMappings(resp.Header.Get(FieldMappingsHeader))
	if err != nil {
		wrapped := fmt.Errorf("query %s window: %w", spec.Label(), err)
		queriesTotal.WithLabelValues("window", "error").Inc()
		r.observer.QueryFinished(spec, 0, wrapped)
		return nil, nil, wrapped
	}

	rows, err := decodeRows(resp.Body)
	if err != nil {
		wrapped := fmt.Errorf("query %s window: %w", spec.Label(), err)
		queriesTotal.WithLabelValues("window", "error").Inc()
		r.observer.QueryFinished(spec, 0, wrapped)
		return nil, nil, wrapped
	}

	table := NewAssembledTable()
	table.AppendAll(rows)

	pagesFetchedTotal.WithLabelValues("window").Inc()
	rowsFetchedTotal.WithLabelValues("window").Add(float64(table.NumRows()))
	queriesTotal.WithLabelValues("window", "ok").Inc()
	r.observer.QueryFinished(spec, table.NumRows(), nil)

	return table, mappings, nil
}

// parseFieldMappings decodes the field-mapping header value. A missing or
// malformed header is a ProtocolError: without it the caller cannot tell
// what the columns mean.
func parseFieldMappings(header string) ([]FieldMapping, error) {
	if header == "" {
		return nil, &ProtocolError{Header: FieldMappingsHeader, Reason: "missing"}
	}

	var mappings []FieldMapping
	if err := json.Unmarshal([]byte(header), &mappings); err != nil {
		return nil, &ProtocolError{Header: FieldMappingsHeader, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	return mappings, nil
}
