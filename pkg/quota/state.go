// Package quota implements API-key quota tracking and request gating.
// The hosting gateway reports the hourly request budget through the
// X-RateLimit-Limit and X-RateLimit-Remaining headers; this package mirrors
// that state into Redis so every process sharing the key sees the same budget.
package quota

import (
	"time"
)

// Redis keys for quota state storage.
const (
	RedisKeyRemaining  = "campd:quota:remaining"
	RedisKeyLimit      = "campd:quota:limit"
	RedisKeyLastUpdate = "campd:quota:last_update"
)

// Thresholds for quota decisions.
const (
	// ThresholdCritical blocks all requests when remaining falls below this value.
	// The gateway answers 429 once the budget is gone; stopping early keeps the
	// key usable for other consumers.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when remaining falls below this value.
	ThresholdWarning = 50

	// ThresholdHealthy indicates normal operation. At or above this value no
	// restrictions apply.
	ThresholdHealthy = 200
)

// State represents the shared API-key quota state.
// The gateway window is hourly and resets at the top of the hour.
type State struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// Limit is the total request budget per window.
	// Extracted from the X-RateLimit-Limit header.
	Limit int `json:"limit"`

	// LastUpdate is when this state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the hourly window resets.
func (s *State) TimeUntilReset() time.Duration {
	now := time.Now()
	reset := now.Truncate(time.Hour).Add(time.Hour)
	return reset.Sub(now)
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
