package farmsession

import (
	"context"
	"sync"
	"time"

	"github.com/Slandbot/farmsession/token"
)

type schedulerState uint8

const (
	schedDisarmed schedulerState = iota
	schedArmed
	schedFiring
)

// renewalScheduler renews the access token before it expires instead of
// waiting for a request to fail with 401. At most one timer is live at a time;
// re-arming cancels the previous one. A generation counter fences stale timer
// callbacks that race with Disarm or a newer Arm.
type renewalScheduler struct {
	mu    sync.Mutex
	state schedulerState
	gen   uint64
	timer *time.Timer
	m     *Manager
}

func newRenewalScheduler(m *Manager) *renewalScheduler {
	return &renewalScheduler{m: m}
}

// ArmForToken arms the renewal timer from the token's exp claim. Tokens
// without an exp claim leave the scheduler disarmed; there is nothing to renew
// ahead of.
func (s *renewalScheduler) ArmForToken(tok string) {
	exp, ok := token.ExpiresAt(tok)
	if !ok {
		s.Disarm()
		return
	}
	s.Arm(exp)
}

// Arm schedules a renewal at expiry minus the configured lead. An expiry
// already inside the lead window fires immediately.
func (s *renewalScheduler) Arm(expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m.closed.Load() {
		return
	}

	s.stopLocked()

	delay := time.Until(expiry.Add(-s.m.config.Tokens.RenewalLead))
	if delay < 0 {
		delay = 0
	}

	s.gen++
	gen := s.gen
	s.state = schedArmed
	s.timer = time.AfterFunc(delay, func() { s.fire(gen) })
	s.m.metrics.Inc(MetricSchedulerArmed)
}

// Disarm cancels any pending renewal. Safe to call when nothing is armed.
func (s *renewalScheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopLocked()
}

func (s *renewalScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = schedDisarmed
}

// State reports the scheduler's current state.
func (s *renewalScheduler) State() schedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// fire runs on the timer goroutine. The timer can lag behind a Disarm or a
// newer Arm, so the generation is re-checked under the lock before anything
// observable happens.
func (s *renewalScheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.m.closed.Load() {
		s.mu.Unlock()
		return
	}
	s.state = schedFiring
	s.timer = nil
	s.mu.Unlock()

	m := s.m
	m.metrics.Inc(MetricSchedulerFired)

	// Only renew when a refresh token exists and the access token is actually
	// expired or inside the lead window. The stored token may have been
	// replaced since this timer was armed.
	if _, ok := m.store.Get(m.config.Storage.RefreshTokenKey); !ok {
		s.settle(gen)
		return
	}
	if tok, ok := m.store.Get(m.config.Storage.TokenKey); ok {
		if exp, hasExp := token.ExpiresAt(tok); hasExp {
			if time.Until(exp) > m.config.Tokens.RenewalLead {
				// Token was replaced by a fresher one; re-arm for it.
				s.settle(gen)
				s.Arm(exp)
				return
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.config.API.RequestTimeout)
	defer cancel()

	if _, err := m.refresher.Refresh(ctx); err != nil {
		if isAuthFailure(err) {
			// The refresh token itself was rejected; the session is over.
			_ = m.terminalAuthFailure(err)
		} else {
			// Network trouble: keep the session and let the next
			// authenticated request drive recovery through its 401 path.
			m.logger.Warn().Err(err).Msg("farmsession: proactive renewal failed")
		}
	}
	// Refresh arms the scheduler for the rotated token on success.
	s.settle(gen)
}

func (s *renewalScheduler) settle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && s.state == schedFiring {
		s.state = schedDisarmed
	}
}
