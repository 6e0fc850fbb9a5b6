// Package backoff implements bounded exponential delays for retryable calls.
//
// The session manager retries network-level failures a fixed number of times;
// this package owns only the delay schedule. Classification of what is
// retryable belongs to the caller.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64 // 0..1 fraction of the computed delay
}

// Default returns the schedule used when the caller configures nothing:
// 3 attempts, 500ms base, doubling, capped at 5s, 20% jitter.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// Delay reports the wait before the given retry attempt. Attempt numbering
// starts at 1 for the first retry; attempt <= 0 yields zero.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}

	d := float64(p.BaseDelay)
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	if p.Jitter > 0 {
		j := p.Jitter
		if j > 1 {
			j = 1
		}
		// Spread delays across [d*(1-j), d*(1+j)] to avoid synchronized retries.
		d = d * (1 - j + 2*j*rand.Float64())
	}

	return time.Duration(d)
}

// Sleep blocks for the attempt's delay or until the context is cancelled.
// It reports false when the context ended first.
func (p Policy) Sleep(ctx context.Context, attempt int) bool {
	d := p.Delay(attempt)
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
