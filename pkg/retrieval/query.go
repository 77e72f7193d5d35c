package retrieval

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DateFormat is the wire format for date filters.
const DateFormat = "2006-01-02"

// Filter is one query filter: a key with one or more values.
// Multi-valued filters are serialized as a single pipe-delimited string
// (e.g. year=1995|1996|1997).
type Filter struct {
	Key    string
	Values []string
}

// Filters is an ordered collection of query filters. Order is preserved on
// encode so request URLs stay reproducible.
type Filters []Filter

// Add appends a filter and returns the extended collection.
func (fs Filters) Add(key string, values ...string) Filters {
	return append(fs, Filter{Key: key, Values: values})
}

// AddInts appends a filter with integer values.
func (fs Filters) AddInts(key string, values ...int) Filters {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = fmt.Sprintf("%d", v)
	}
	return fs.Add(key, strs...)
}

// Encode writes the filters into query parameters, pipe-joining values.
func (fs Filters) Encode(q url.Values) {
	for _, f := range fs {
		if len(f.Values) == 0 {
			continue
		}
		q.Set(f.Key, strings.Join(f.Values, "|"))
	}
}

// QuerySpec is the immutable description of one retrieval request.
// A spec is constructed per logical unit of work (one state, one file
// category) and consumed once to produce exactly one AssembledTable.
type QuerySpec struct {
	// ID is a caller-chosen label used in log events and error context.
	ID string

	// Endpoint is the API path for this query.
	Endpoint string

	// Filters are the query filters, in order.
	Filters Filters

	// PageSize is the per-page row count (paginated mode only).
	PageSize int

	// BeginDate and EndDate bound the inclusive date window
	// (streaming mode only).
	BeginDate time.Time
	EndDate   time.Time
}

// NewPaginatedQuery builds a spec for the paginated mode.
func NewPaginatedQuery(id, endpoint string, filters Filters, pageSize int) QuerySpec {
	return QuerySpec{
		ID:       id,
		Endpoint: endpoint,
		Filters:  filters,
		PageSize: pageSize,
	}
}

// NewWindowQuery builds a spec for the streaming-window mode.
// The window is inclusive and endDate must not precede beginDate.
func NewWindowQuery(id, endpoint string, filters Filters, beginDate, endDate time.Time) (QuerySpec, error) {
	if endDate.Before(beginDate) {
		return QuerySpec{}, fmt.Errorf("invalid window: endDate %s before beginDate %s",
			endDate.Format(DateFormat), beginDate.Format(DateFormat))
	}
	return QuerySpec{
		ID:        id,
		Endpoint:  endpoint,
		Filters:   filters,
		BeginDate: beginDate,
		EndDate:   endDate,
	}, nil
}

// Window returns the span of the date window.
func (s QuerySpec) Window() time.Duration {
	return s.EndDate.Sub(s.BeginDate)
}

// Label returns the ID, falling back to the endpoint path.
func (s QuerySpec) Label() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Endpoint
}
