package farmsession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Slandbot/farmsession/internal/backoff"
	"github.com/Slandbot/farmsession/internal/events"
	"github.com/Slandbot/farmsession/store"
	"github.com/Slandbot/farmsession/token"
)

// Manager defines a public type used by farmsession APIs.
//
// Manager is the session façade the dashboard talks to: it owns the credential
// pair, attaches bearer tokens to outgoing requests, coordinates refresh and
// proactive renewal, and announces session-state transitions on the event bus.
// A Manager is safe for concurrent use.
type Manager struct {
	config     Config
	httpClient *http.Client
	store      store.Store
	logger     zerolog.Logger
	retry      backoff.Policy

	bus        *Bus
	dispatcher *events.Dispatcher
	metrics    *Metrics
	scheduler  *renewalScheduler
	refresher  *refreshCoordinator

	initMu     sync.Mutex
	initFlight *initFlight

	graceMu    sync.Mutex
	graceUntil time.Time

	closed atomic.Bool
}

type initFlight struct {
	done chan struct{}
	user *User
	err  error
}

/*
====================================
AUTH FLOWS
====================================
*/

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Login(ctx context.Context, email, password string) (*User, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	payload, err := m.postAuth(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return nil, err
	}

	user := m.establishSession(payload)
	m.metrics.Inc(MetricLoginSuccess)
	m.announce(EventLogin, m.record(EventLogin, user, ""))
	m.logger.Info().Str("email", safeEmail(user)).Msg("farmsession: login succeeded")
	return user, nil
}

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	payload, err := m.postAuth(ctx, "/auth/register", input)
	if err != nil {
		m.metrics.Inc(MetricRegisterFailure)
		return nil, err
	}

	user := m.establishSession(payload)
	m.metrics.Inc(MetricRegisterSuccess)
	m.announce(EventLogin, m.record(EventLogin, user, "registered"))
	return user, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The server-side invalidation call is best-effort: a network failure is
// logged, never surfaced, and never leaves credentials behind.
func (m *Manager) Logout(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	user := m.cachedUser()

	if tok, ok := m.store.Get(m.config.Storage.TokenKey); ok && tok != "" {
		req, err := m.newRequest(ctx, http.MethodPost, "/auth/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+tok)
			if err := m.send(req, nil); err != nil {
				m.logger.Warn().Err(err).Msg("farmsession: server-side logout failed")
			}
		}
	}

	m.clearSession()
	m.metrics.Inc(MetricLogout)
	m.announce(EventLogout, m.record(EventLogout, user, ""))
	return nil
}

// GetCurrentUser describes the getcurrentuser operation and its observable behavior.
//
// GetCurrentUser may return an error when input validation, dependency calls, or security checks fail.
// GetCurrentUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// GetCurrentUser is storage-only: it never touches the network, so the UI can
// render optimistically before any round-trip completes. When the cached user
// record is absent but a token exists, the email decoded from the token is
// returned as a minimal fallback.
func (m *Manager) GetCurrentUser() (*User, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	if user := m.cachedUser(); user != nil {
		return user, nil
	}

	if tok, ok := m.store.Get(m.config.Storage.TokenKey); ok && tok != "" {
		if email := token.SubjectEmail(tok); email != "" {
			return &User{Email: email}, nil
		}
	}

	return nil, ErrNoSession
}

// InitializeAuth describes the initializeauth operation and its observable behavior.
//
// InitializeAuth may return an error when input validation, dependency calls, or security checks fail.
// InitializeAuth does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// InitializeAuth is idempotent and single-flight: concurrent callers at app
// boot share one underlying initialization and receive the same resolved user.
// A usable cached session is never discarded because a network call failed;
// only authentication failures clear state, and those go through the grace
// window like any other.
func (m *Manager) InitializeAuth(ctx context.Context) (*User, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	m.initMu.Lock()
	if f := m.initFlight; f != nil {
		m.initMu.Unlock()
		select {
		case <-f.done:
			return f.user, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &initFlight{done: make(chan struct{})}
	m.initFlight = f
	m.initMu.Unlock()

	f.user, f.err = m.initialize(ctx)

	m.initMu.Lock()
	m.initFlight = nil
	m.initMu.Unlock()
	close(f.done)

	return f.user, f.err
}

func (m *Manager) initialize(ctx context.Context) (*User, error) {
	// Cached user wins: return it immediately and refresh the profile in the
	// background without blocking or clearing on failure.
	if user := m.cachedUser(); user != nil {
		m.metrics.Inc(MetricInitFromCache)
		if tok, ok := m.store.Get(m.config.Storage.TokenKey); ok && tok != "" {
			m.scheduler.ArmForToken(tok)
		}
		go m.backgroundProfileRefresh()
		return user, nil
	}

	tok, ok := m.store.Get(m.config.Storage.TokenKey)
	if !ok || tok == "" {
		return nil, ErrNoSession
	}

	m.metrics.Inc(MetricInitFromToken)

	if token.IsExpired(tok) {
		creds, err := m.refresher.Refresh(ctx)
		if err != nil {
			if isAuthFailure(err) {
				return nil, m.terminalAuthFailure(err)
			}
			// Network trouble is not grounds for discarding the session; the
			// token decodes, so hand back what we know.
			if email := token.SubjectEmail(tok); email != "" {
				return &User{Email: email}, nil
			}
			return nil, err
		}
		tok = creds.AccessToken
	} else {
		m.scheduler.ArmForToken(tok)
	}

	user, err := m.GetProfile(ctx)
	if err != nil {
		if email := token.SubjectEmail(tok); email != "" && !isAuthFailure(err) {
			return &User{Email: email}, nil
		}
		return nil, err
	}
	return user, nil
}

func (m *Manager) backgroundProfileRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.API.RequestTimeout)
	defer cancel()

	if _, err := m.GetProfile(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("farmsession: background profile refresh failed")
	}
}

/*
====================================
PROFILE
====================================
*/

// GetProfile describes the getprofile operation and its observable behavior.
//
// GetProfile may return an error when input validation, dependency calls, or security checks fail.
// GetProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) GetProfile(ctx context.Context) (*User, error) {
	var user User
	if err := m.Do(ctx, http.MethodGet, "/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	m.storeUser(&user)
	return &user, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var user User
	if err := m.Do(ctx, http.MethodPut, "/auth/profile", update, &user); err != nil {
		return nil, err
	}
	m.storeUser(&user)
	return &user, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return m.Do(ctx, http.MethodPost, "/auth/change-password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, nil)
}

/*
====================================
EVENTS AND INTROSPECTION
====================================
*/

// On describes the on operation and its observable behavior.
//
// On registers a handler for a session event and returns an unsubscribe
// function. Handlers run synchronously on the goroutine that caused the
// transition.
func (m *Manager) On(event Event, handler func(EventRecord)) func() {
	return m.bus.On(event, handler)
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// EventsDropped describes the eventsdropped operation and its observable behavior.
//
// EventsDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) EventsDropped() uint64 {
	return m.dispatcher.Dropped()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close disarms the renewal timer and drains the event dispatcher. Stored
// credentials are left untouched so the session survives a restart.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.scheduler.Disarm()
	m.dispatcher.Close()
	return nil
}

/*
====================================
SESSION STATE HELPERS
====================================
*/

// establishSession persists the credential pair and user, opens the grace
// window, and arms proactive renewal.
func (m *Manager) establishSession(payload *authPayload) *User {
	m.store.Set(m.config.Storage.TokenKey, payload.Token)
	if rt := payload.refreshToken(); rt != "" {
		m.store.Set(m.config.Storage.RefreshTokenKey, rt)
	}

	user := payload.User
	if user == nil {
		user = &User{Email: token.SubjectEmail(payload.Token)}
	}
	m.storeUser(user)

	m.graceMu.Lock()
	m.graceUntil = time.Now().Add(m.config.Tokens.GraceWindow)
	m.graceMu.Unlock()

	m.scheduler.ArmForToken(payload.Token)
	return user
}

// clearSession removes all three storage keys and disarms renewal. It is the
// only place session state is destroyed.
func (m *Manager) clearSession() {
	m.store.Remove(m.config.Storage.TokenKey)
	m.store.Remove(m.config.Storage.RefreshTokenKey)
	m.store.Remove(m.config.Storage.UserKey)
	m.scheduler.Disarm()
}

func (m *Manager) inGraceWindow() bool {
	m.graceMu.Lock()
	defer m.graceMu.Unlock()
	return time.Now().Before(m.graceUntil)
}

func (m *Manager) cachedUser() *User {
	raw, ok := m.store.Get(m.config.Storage.UserKey)
	if !ok || raw == "" {
		return nil
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn().Err(err).Msg("farmsession: cached user record is corrupt, ignoring")
		return nil
	}
	return &user
}

func (m *Manager) storeUser(user *User) {
	if user == nil {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	m.store.Set(m.config.Storage.UserKey, string(raw))
}

// announce fans a transition out to the synchronous bus and the async sink
// dispatcher.
func (m *Manager) announce(event Event, record EventRecord) {
	m.bus.emit(event, record)
	if m.dispatcher != nil {
		m.dispatcher.Emit(context.Background(), record)
	}
}

func (m *Manager) record(event Event, user *User, reason string) EventRecord {
	rec := EventRecord{
		Timestamp: time.Now().UTC(),
		Event:     event.String(),
		Reason:    reason,
	}
	if user != nil {
		rec.UserID = user.ID
		rec.Email = user.Email
	}
	return rec
}

// postAuth performs an unauthenticated auth-endpoint call (login/register)
// and decodes its payload.
func (m *Manager) postAuth(ctx context.Context, endpoint string, body any) (*authPayload, error) {
	req, err := m.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}

	var payload authPayload
	if err := m.send(req, &payload); err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, &APIError{Kind: KindServer, Message: "auth response missing token"}
	}
	return &payload, nil
}

// isAuthFailure reports whether err is authentication-specific: the only
// class of failure allowed to destroy cached session state.
func isAuthFailure(err error) bool {
	if errors.Is(err, ErrNoRefreshToken) || errors.Is(err, ErrSessionExpired) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindAuthentication
	}
	return false
}

func safeEmail(u *User) string {
	if u == nil {
		return ""
	}
	return u.Email
}
