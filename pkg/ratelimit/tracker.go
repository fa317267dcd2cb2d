package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	upstreamRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "champ_upstream_ratelimit_remaining",
		Help: "Requests remaining in the current upstream rate limit window",
	})

	exhaustedWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "champ_upstream_ratelimit_waits_total",
		Help: "Total number of requests held until the upstream window reset",
	})
)

// Config holds pacing configuration.
type Config struct {
	// RequestsPerSecond is the client-side pacing rate. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the token bucket size. Defaults to 1.
	Burst int
}

// Tracker paces requests and records the upstream quota.
type Tracker struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state State
}

// NewTracker creates a new rate limit tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Tracker{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		now:     time.Now,
		state:   State{IsHealthy: true},
	}
}

// State returns the last observed upstream quota.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Wait blocks until a request may be issued. It paces with the token
// bucket and, when the upstream window is exhausted, holds the request
// until the advertised reset.
func (t *Tracker) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	state := t.State()
	now := t.now()
	if !state.Exhausted(now) {
		return nil
	}

	wait := state.TimeUntilReset(now)
	exhaustedWaitsTotal.Inc()
	t.logger.Warn().
		Dur("wait_duration", wait).
		Msg("Upstream rate limit exhausted - holding request until reset")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateFromHeaders records the quota advertised in response headers.
// Responses without quota headers leave the state unchanged.
func (t *Tracker) UpdateFromHeaders(headers http.Header) {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		t.logger.Debug().Err(err).Str("header", HeaderRemaining).Msg("Unparseable rate limit header")
		return
	}

	now := t.now()
	state := State{
		Known:      true,
		Remaining:  remain,
		LastUpdate: now,
	}

	if limit, err := strconv.Atoi(headers.Get(HeaderLimit)); err == nil {
		state.Limit = limit
	}
	if reset, err := strconv.Atoi(headers.Get(HeaderReset)); err == nil {
		state.ResetAt = now.Add(time.Duration(reset) * time.Second)
	}
	state.UpdateHealth()

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	upstreamRemaining.Set(float64(remain))

	if !state.IsHealthy {
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("Upstream rate limit running low")
	}
}
