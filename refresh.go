package farmsession

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// refreshFlight is one in-progress refresh attempt. Waiters block on done and
// read creds/err afterwards; both are written exactly once before done closes.
type refreshFlight struct {
	done  chan struct{}
	creds Credentials
	err   error
}

// refreshCoordinator serializes refresh-token exchanges. Any number of callers
// may request a refresh concurrently; exactly one network exchange runs and
// every caller observes its outcome. This prevents the rotating refresh token
// from being spent twice, which the backend treats as reuse.
type refreshCoordinator struct {
	mu     sync.Mutex
	flight *refreshFlight
	m      *Manager
}

func newRefreshCoordinator(m *Manager) *refreshCoordinator {
	return &refreshCoordinator{m: m}
}

// Refresh returns the credentials produced by the current or a newly started
// refresh exchange. Callers that join an in-flight exchange never touch the
// network.
func (r *refreshCoordinator) Refresh(ctx context.Context) (Credentials, error) {
	r.mu.Lock()
	if f := r.flight; f != nil {
		r.mu.Unlock()
		r.m.metrics.Inc(MetricRefreshCoalesced)
		return r.wait(ctx, f)
	}

	f := &refreshFlight{done: make(chan struct{})}
	r.flight = f
	r.mu.Unlock()

	f.creds, f.err = r.exchange(ctx)

	r.mu.Lock()
	r.flight = nil
	r.mu.Unlock()
	close(f.done)

	return f.creds, f.err
}

func (r *refreshCoordinator) wait(ctx context.Context, f *refreshFlight) (Credentials, error) {
	select {
	case <-f.done:
		return f.creds, f.err
	case <-ctx.Done():
		return Credentials{}, ctx.Err()
	}
}

// exchange performs the actual refresh round-trip: read the stored refresh
// token, post it, persist the rotated pair, announce the outcome.
func (r *refreshCoordinator) exchange(ctx context.Context) (Credentials, error) {
	m := r.m

	refreshTok, ok := m.store.Get(m.config.Storage.RefreshTokenKey)
	if !ok || refreshTok == "" {
		m.metrics.Inc(MetricRefreshFailure)
		return Credentials{}, ErrNoRefreshToken
	}

	payload, err := r.post(ctx, refreshTok)
	if err != nil && IsRetryable(err) {
		if m.retry.Sleep(ctx, 1) {
			m.metrics.Inc(MetricRequestRetried)
			payload, err = r.post(ctx, refreshTok)
		}
	}
	if err != nil {
		m.metrics.Inc(MetricRefreshFailure)
		m.logger.Warn().Err(err).Msg("farmsession: token refresh failed")
		return Credentials{}, err
	}

	creds := Credentials{AccessToken: payload.Token, RefreshToken: payload.refreshToken()}
	m.store.Set(m.config.Storage.TokenKey, creds.AccessToken)
	if creds.RefreshToken != "" {
		m.store.Set(m.config.Storage.RefreshTokenKey, creds.RefreshToken)
	}
	if payload.User != nil {
		m.storeUser(payload.User)
	}

	m.metrics.Inc(MetricRefreshSuccess)
	m.scheduler.ArmForToken(creds.AccessToken)
	m.announce(EventTokenRefresh, EventRecord{Timestamp: time.Now().UTC(), Event: EventTokenRefresh.String()})

	return creds, nil
}

// post exchanges the refresh token without going through Manager.do: the
// request carries no bearer token and must never trigger a nested refresh.
func (r *refreshCoordinator) post(ctx context.Context, refreshTok string) (*authPayload, error) {
	m := r.m

	req, err := m.newRequest(ctx, http.MethodPost, "/auth/refresh-token", map[string]string{
		"refreshToken": refreshTok,
	})
	if err != nil {
		return nil, err
	}

	var payload authPayload
	if err := m.send(req, &payload); err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, &APIError{Kind: KindServer, Message: "refresh response missing token", Retryable: false}
	}
	return &payload, nil
}
