package farmsession

import (
	"io"
	"net/http"
)

// Transport defines a public type used by farmsession APIs.
//
// Transport is an [http.RoundTripper] for callers that bring their own HTTP
// plumbing, such as the domain resource services for birds, eggs, feed, and
// medicine. It injects the current bearer token and applies the same
// one-shot refresh-then-replay semantics as [Manager.Do], so every consumer
// shares one refresh cycle.
type Transport struct {
	base http.RoundTripper
	m    *Manager
}

// NewTransport describes the newtransport operation and its observable behavior.
//
// NewTransport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewTransport(m *Manager, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, m: m}
}

// RoundTrip describes the roundtrip operation and its observable behavior.
//
// RoundTrip may return an error when input validation, dependency calls, or security checks fail.
// RoundTrip does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	m := t.m
	if m == nil || m.closed.Load() {
		return nil, ErrManagerClosed
	}

	tok, ok := m.store.Get(m.config.Storage.TokenKey)
	if !ok || tok == "" {
		return nil, ErrSessionExpired
	}

	first := req.Clone(req.Context())
	first.Header.Set("Authorization", "Bearer "+tok)

	resp, err := t.base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A body that cannot be rewound cannot be replayed; surface the 401 as-is.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()

	creds, err := m.refresher.Refresh(req.Context())
	if err != nil {
		if isAuthFailure(err) {
			return nil, m.terminalAuthFailure(err)
		}
		return nil, err
	}

	replay := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		replay.Body = body
	}
	replay.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	return t.base.RoundTrip(replay)
}
