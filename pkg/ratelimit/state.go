// Package ratelimit tracks the upstream API's advertised request quota and
// paces outgoing requests. It reads the X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset response headers.
package ratelimit

import (
	"time"
)

// Response headers carrying the upstream quota.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions, as a share of the advertised limit.
const (
	// WarningRatio marks the state unhealthy when remaining/limit falls below it.
	WarningRatio = 0.2
)

// State represents the last observed upstream quota.
type State struct {
	// Known is false until a response carried quota headers.
	Known bool `json:"known"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is false once Remaining drops below WarningRatio of Limit.
	IsHealthy bool `json:"is_healthy"`
}

// Exhausted reports whether the window is used up and has not reset yet.
func (s State) Exhausted(now time.Time) bool {
	return s.Known && s.Remaining <= 0 && now.Before(s.ResetAt)
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates IsHealthy from Remaining and Limit.
func (s *State) UpdateHealth() {
	if s.Limit <= 0 {
		s.IsHealthy = s.Remaining > 0
		return
	}
	s.IsHealthy = float64(s.Remaining) >= float64(s.Limit)*WarningRatio
}
