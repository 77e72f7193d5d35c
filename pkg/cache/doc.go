// Package cache provides response caching with a Redis backend.
//
// The cache manager supports the retrieval client with:
//
// - Fixed configurable TTL (the API sends no freshness headers)
// - ETag support for conditional requests against the bulk file host
// - Last-Modified support (If-Modified-Since)
// - Prometheus metrics for observability
// - Deterministic cache key generation (api_key never enters a key)
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, 15*time.Minute)
//
//	key := cache.Key{
//		Endpoint:    "/emissions-mgmt/emissions/apportioned/annual",
//		QueryParams: url.Values{"stateCode": []string{"CA"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the API
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, manager.TTL())
//	if err != nil {
//		return err
//	}
//
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
// The bulk file host serves ETag and Last-Modified headers. When a cached
// entry carries either, the client revalidates instead of re-downloading:
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// A 304 response means the multi-megabyte file is unchanged
//	}
//
// # Metrics
//
//   - campd_cache_hits_total{layer="redis"} - Cache hits
//   - campd_cache_misses_total - Cache misses
//   - campd_cache_size_bytes{layer="redis"} - Cache size
//   - campd_304_responses_total - Conditional request successes
//   - campd_conditional_requests_total - Conditional requests sent
//   - campd_cache_errors_total{operation} - Cache operation errors
package cache
