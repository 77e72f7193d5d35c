// Package client provides the core CAMPD HTTP client with API-key handling,
// quota gating, response caching, and error decoding.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openairdata/campd-client/pkg/cache"
	"github.com/openairdata/campd-client/pkg/quota"
)

// DefaultBaseURL is the public CAMPD API gateway.
const DefaultBaseURL = "https://api.epa.gov/easey"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campd_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campd_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campd_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (except 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 quota errors from the gateway.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the CAMPD API client.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	quota      *quota.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
//
// The API key and base URL are explicit values here rather than process-wide
// globals; every Client owns its own configuration.
type Config struct {
	// BaseURL of the API gateway (default: DefaultBaseURL)
	BaseURL string

	// APIKey is sent as the api_key query parameter (REQUIRED)
	APIKey string

	// UserAgent header value
	UserAgent string

	// Redis enables the shared response cache and quota tracker when set.
	// A nil client disables both; requests then go straight to the network.
	Redis *redis.Client

	// CacheTTL is the freshness window for cached responses.
	CacheTTL time.Duration

	// MaxRetries is the number of automatic retries for transient errors.
	// Zero (the default) disables retry entirely.
	MaxRetries     int
	InitialBackoff time.Duration

	// Timeout for a single HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		APIKey:         apiKey,
		UserAgent:      "campd-client/0.1.0",
		CacheTTL:       cache.DefaultTTL,
		MaxRetries:     0,
		InitialBackoff: 1 * time.Second,
		Timeout:        60 * time.Second,
	}
}

// New creates a new CAMPD client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "campd-client/0.1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}

	logger := log.With().Str("component", "campd-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:  cfg.Redis,
		config: cfg,
		logger: logger,
	}

	if cfg.Redis != nil {
		c.quota = quota.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	} else {
		logger.Debug().Msg("No Redis configured - cache and quota tracking disabled")
	}

	return c, nil
}

// Do performs an HTTP request with quota gating, caching, and error decoding.
// Responses with status >= 400 are returned as *RemoteError with the code
// and message decoded from the error body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check quota
	if c.quota != nil {
		allowed, err := c.quota.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Quota check failed")
			return nil, fmt.Errorf("quota check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by quota tracker")
			requestsTotal.WithLabelValues(endpoint, "quota_blocked").Inc()
			return nil, ErrQuotaBlocked
		}
	}

	// Step 2: Check cache
	var cachedEntry *cache.Entry
	cacheKey := cache.Key{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	if c.cache != nil && req.Method == http.MethodGet {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry

		if cachedEntry != nil {
			// Entries from the bulk file host carry validators; revalidate
			// those. Plain JSON responses are served straight from cache.
			if cache.ShouldMakeConditionalRequest(cachedEntry) {
				cache.AddConditionalHeaders(req, cachedEntry)
				cache.ConditionalRequestsSent.Inc()
				c.logger.Debug().
					Str("endpoint", endpoint).
					Str("etag", cachedEntry.ETag).
					Msg("Making conditional request")
			} else {
				c.logger.Debug().Str("endpoint", endpoint).Msg("Serving response from cache")
				requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
				return cache.EntryToResponse(cachedEntry), nil
			}
		}
	}

	// Step 3: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	// Step 4: Execute, optionally with retry
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing API request")

	var resp *http.Response

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = c.config.MaxRetries + 1
	retryCfg.InitialBackoff = c.config.InitialBackoff

	err := retryWithBackoff(ctx, retryCfg, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		// Keep the shared quota budget current
		if c.quota != nil {
			if err := c.quota.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update quota from headers")
			}
		}

		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			remoteErr := decodeRemoteError(resp)
			errClass := c.classifyError(resp.StatusCode)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status_code", resp.StatusCode).
				Str("code", remoteErr.Code).
				Str("error_class", string(errClass)).
				Msg("API request error")

			return remoteErr
		}

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	}, c.classify)

	if err != nil {
		return nil, err
	}

	// Step 5: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if c.cache != nil && cachedEntry != nil {
			if err := c.cache.Refresh(ctx, cacheKey); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			}
			resp.Body.Close()
			return cache.EntryToResponse(cachedEntry), nil
		}
		return resp, nil
	}

	// Step 6: Update cache on success
	if c.cache != nil && req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.cache.TTL())
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request against an API path with the given query
// parameters. The api_key parameter is added automatically.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u, err := url.Parse(strings.TrimSuffix(c.config.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("build request URL: %w", err)
	}

	q := u.Query()
	for key, values := range query {
		for _, value := range values {
			q.Add(key, value)
		}
	}
	q.Set("api_key", c.config.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// classifyError categorizes a status code for observability and retry gating.
func (c *Client) classifyError(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classify maps an error from the request loop to its class.
func (c *Client) classify(err error) ErrorClass {
	if remoteErr, ok := err.(*RemoteError); ok {
		return c.classifyError(remoteErr.StatusCode)
	}
	return ErrorClassNetwork
}

// BaseURL returns the configured gateway base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
