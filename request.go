package farmsession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 4 << 20

// Do describes the do operation and its observable behavior.
//
// Do may return an error when input validation, dependency calls, or security checks fail.
// Do does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Do is the authenticated-request wrapper every domain call goes through. It
// attaches the bearer token, retries retryable failures with backoff, and on
// 401 performs exactly one refresh-then-replay. When the refresh itself fails,
// the grace window decides whether the failure is transient or terminal.
func (m *Manager) Do(ctx context.Context, method, endpoint string, body, out any) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	tok, ok := m.store.Get(m.config.Storage.TokenKey)
	if !ok || tok == "" {
		// No token means no session; attempting the call would only convert
		// this into a slower 401.
		return ErrSessionExpired
	}

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindValidation, Message: "request body is not serializable", cause: err}
		}
	}

	err := m.attemptWithRetry(ctx, method, endpoint, encoded, tok, out)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Status == 401:
		return m.refreshAndReplay(ctx, method, endpoint, encoded, out)
	case apiErr.Status == 403:
		m.notePermissionDenied(endpoint)
		return err
	default:
		return err
	}
}

// refreshAndReplay handles the 401 path: one refresh, one replay, and the
// grace-window decision when the refresh fails.
func (m *Manager) refreshAndReplay(ctx context.Context, method, endpoint string, encoded []byte, out any) error {
	creds, err := m.refresher.Refresh(ctx)
	if err != nil {
		// Only an authentication failure ends the session. A waiter whose
		// context expires while the shared exchange settles, or a transport
		// failure, must not destroy state the exchange may still rotate.
		if isAuthFailure(err) {
			return m.terminalAuthFailure(err)
		}
		return err
	}

	err = m.attemptWithRetry(ctx, method, endpoint, encoded, creds.AccessToken, out)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401:
			// A 401 on the replayed request does not trigger a second refresh.
			return m.terminalAuthFailure(err)
		case 403:
			m.notePermissionDenied(endpoint)
		}
	}
	return err
}

func (m *Manager) notePermissionDenied(endpoint string) {
	m.metrics.Inc(MetricPermissionDenied)
	m.announce(EventPermissionDenied, m.record(EventPermissionDenied, m.cachedUser(), endpoint))
}

// terminalAuthFailure applies the grace window: a freshly logged-in session
// rides out transient rejections instead of bouncing the user back to login.
func (m *Manager) terminalAuthFailure(cause error) error {
	if m.inGraceWindow() {
		m.logger.Debug().Err(cause).Msg("farmsession: auth failure inside grace window, keeping session")
		return &APIError{Kind: KindAuthentication, Message: "authentication failed, please retry", Retryable: true, cause: ErrAuthTransient}
	}

	user := m.cachedUser()
	m.clearSession()
	m.metrics.Inc(MetricSessionExpired)
	m.announce(EventSessionExpired, m.record(EventSessionExpired, user, "refresh failed"))
	m.logger.Info().Err(cause).Msg("farmsession: session expired")
	return ErrSessionExpired
}

// attemptWithRetry runs one logical request, retrying transport and 5xx-class
// failures per the retry policy. 4xx responses are returned to the caller on
// the first occurrence.
func (m *Manager) attemptWithRetry(ctx context.Context, method, endpoint string, encoded []byte, tok string, out any) error {
	var lastErr error

	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !m.retry.Sleep(ctx, attempt-1) {
				return ctx.Err()
			}
			m.metrics.Inc(MetricRequestRetried)
		}

		req, err := m.newRequestRaw(ctx, method, endpoint, encoded)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)

		start := time.Now()
		err = m.send(req, out)
		m.metrics.Observe(MetricRequestLatency, time.Since(start))

		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

/*
====================================
REQUEST CONSTRUCTION
====================================
*/

func (m *Manager) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, &APIError{Kind: KindValidation, Message: "request body is not serializable", cause: err}
		}
	}
	return m.newRequestRaw(ctx, method, endpoint, encoded)
}

func (m *Manager) newRequestRaw(ctx context.Context, method, endpoint string, encoded []byte) (*http.Request, error) {
	u := strings.TrimSuffix(m.config.API.BaseURL, "/") + endpoint

	var reader io.Reader
	if encoded != nil {
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, &APIError{Kind: KindValidation, Message: "invalid request", cause: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.config.API.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send executes one HTTP round-trip and decodes the backend's envelope.
// Errors are always returned classified.
func (m *Manager) send(req *http.Request, out any) error {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode >= 400 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return classifyStatus(resp.StatusCode, env.Message)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: "malformed response body", cause: err}
	}
	return nil
}
