package retrieval

import (
	"net/url"
	"testing"
)

func TestFilters_EncodePipeJoinsValues(t *testing.T) {
	filters := Filters{}.
		AddInts("year", 1995, 1996, 2024).
		Add("stateCode", "CA").
		Add("empty")

	q := url.Values{}
	filters.Encode(q)

	if got := q.Get("year"); got != "1995|1996|2024" {
		t.Errorf("Expected pipe-joined years, got %q", got)
	}
	if got := q.Get("stateCode"); got != "CA" {
		t.Errorf("Expected CA, got %q", got)
	}
	if _, ok := q["empty"]; ok {
		t.Error("Filters without values must not be encoded")
	}
}

func TestQuerySpec_Label(t *testing.T) {
	spec := NewPaginatedQuery("annual-CA", "/annual", nil, 100)
	if spec.Label() != "annual-CA" {
		t.Errorf("Expected ID as label, got %s", spec.Label())
	}

	spec = NewPaginatedQuery("", "/annual", nil, 100)
	if spec.Label() != "/annual" {
		t.Errorf("Expected endpoint fallback, got %s", spec.Label())
	}
}
