package eutils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval keeps unauthenticated clients under NCBI's 3 requests/second.
const DefaultInterval = time.Second / 3

// Pacer decides how long to wait before the next E-utilities call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SleepPacer waits a fixed interval before every call, regardless of how
// long ago the previous call happened.
type SleepPacer struct {
	Interval time.Duration
}

// Wait sleeps for the interval or until ctx is done.
func (p SleepPacer) Wait(ctx context.Context) error {
	if p.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Interval)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RatePacer spaces calls with a token bucket, so time spent inside a request
// counts toward the interval.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer allows one call per interval with no burst.
func NewRatePacer(interval time.Duration) *RatePacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until a token is available or ctx is done.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoPacer never waits. Intended for tests and local mirrors.
type NoPacer struct{}

// Wait returns immediately unless ctx is already done.
func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }
