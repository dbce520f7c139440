package restapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// RateLimitConfig is the token bucket for one platform.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimits stay well below each vendor's published quota.
var DefaultRateLimits = map[domain.Platform]RateLimitConfig{
	domain.PlatformInstagram: {RequestsPerSecond: 1.0, BurstSize: 5},  // 200 calls/hour/user
	domain.PlatformFacebook:  {RequestsPerSecond: 2.0, BurstSize: 10}, // app-level rolling window
	domain.PlatformTikTok:    {RequestsPerSecond: 2.0, BurstSize: 5},  // 600/min per endpoint
	domain.PlatformSpotify:   {RequestsPerSecond: 5.0, BurstSize: 10}, // rolling 30s window
}

const (
	// defaultBackoff applies when a 429 carries no usable Retry-After.
	defaultBackoff = 60 * time.Second
	// MaxBackoff caps the pause a single Retry-After can impose.
	MaxBackoff = 5 * time.Minute
)

// ErrRateLimited is returned by Wait while a 429 backoff is in effect and
// the caller's deadline leaves no room to sit it out.
var ErrRateLimited = errors.New("rate limited")

// RateLimiter throttles requests to one vendor and pauses them after a 429.
type RateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimiter uses the platform's entry in DefaultRateLimits.
func NewRateLimiter(platform domain.Platform) *RateLimiter {
	cfg, ok := DefaultRateLimits[platform]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 2.0, BurstSize: 5}
	}
	return NewRateLimiterWithConfig(cfg)
}

// NewRateLimiterWithConfig creates a limiter with explicit limits.
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Backoff returns how much of the current 429 pause remains.
func (r *RateLimiter) Backoff() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wait := time.Until(r.retryAt); wait > 0 {
		return wait
	}
	return 0
}

// Wait blocks until the token bucket admits a request. During a 429 pause
// it sleeps only if ctx has a deadline past the end of the pause; otherwise
// it fails at once with ErrRateLimited.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if wait := r.Backoff(); wait > 0 {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) < wait {
			return fmt.Errorf("%w, retry in %s", ErrRateLimited, wait.Round(time.Second))
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError starts a pause after a 429. A non-positive
// retryAfter selects the default; anything above MaxBackoff is capped.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = defaultBackoff
	}
	if retryAfter > MaxBackoff {
		retryAfter = MaxBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(retryAfter)
}
