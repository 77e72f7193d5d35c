package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key represents a unique identifier for a cached API response.
type Key struct {
	// Endpoint is the API endpoint path (e.g., "/emissions-mgmt/emissions/apportioned/annual")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"stateCode": "CA", "page": "1"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// The api_key parameter is excluded so credentials never appear in Redis keys
// and rotated keys keep hitting the same entries.
//
// Format: campd:endpoint:query1=val1:query2=val2
//
// Example:
//
//	campd:emissions-mgmt/emissions/apportioned/annual:page=1:stateCode=CA
func (k Key) String() string {
	parts := []string{"campd"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			if key == "api_key" {
				continue
			}
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
