package ratelimit

import (
	"time"
)

// Redis keys for shared throttle state.
const (
	RedisKeyBlockedUntil = "swapi:rate_limit:blocked_until"
	RedisKeyThrottles    = "swapi:rate_limit:throttles"
)

// MaxBlock caps how long a single Retry-After may pause the gateway.
const MaxBlock = time.Minute

// State is the upstream throttle state shared across gateway instances.
type State struct {
	// BlockedUntil is when the upstream said it will accept requests again.
	// Zero means no active block.
	BlockedUntil time.Time `json:"blocked_until"`

	// Throttles counts 429 responses seen since the state was created.
	Throttles int64 `json:"throttles"`
}

// IsBlocked reports whether requests should be held back at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining block at now.
// Returns 0 if no block is active.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
