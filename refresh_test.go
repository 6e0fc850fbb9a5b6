package farmsession

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	b := newTestBackend(t)
	m := newTestManager(t, b, nil)
	mustLogin(t, m, b)

	// Invalidate the access token so every request 401s, and slow the refresh
	// endpoint so all goroutines pile into the same flight.
	b.invalidateToken()
	b.mu.Lock()
	b.refreshDelay = 100 * time.Millisecond
	b.mu.Unlock()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			var out []map[string]any
			results <- m.Do(context.Background(), http.MethodGet, "/birds", nil, &out)
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
	}

	b.mu.Lock()
	refreshCalls := b.refreshCalls
	b.mu.Unlock()
	if refreshCalls != 1 {
		t.Fatalf("expected exactly one refresh exchange, got %d", refreshCalls)
	}

	if got := m.metrics.Value(MetricRefreshSuccess); got != 1 {
		t.Fatalf("expected 1 refresh success, got %d", got)
	}
	if got := m.metrics.Value(MetricRefreshCoalesced); got == 0 {
		t.Fatal("expected waiters to coalesce into the in-flight refresh")
	}
}

func TestRefreshRotatesCredentialPair(t *testing.T) {
	b := newTestBackend(t)
	m := newTestManager(t, b, nil)
	mustLogin(t, m, b)

	oldToken, _ := m.store.Get("token")
	oldRefresh, _ := m.store.Get("refresh_token")

	creds, err := m.refresher.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if creds.AccessToken == oldToken {
		t.Fatal("access token was not rotated")
	}
	if creds.RefreshToken == oldRefresh {
		t.Fatal("refresh token was not rotated")
	}

	storedTok, _ := m.store.Get("token")
	storedRefresh, _ := m.store.Get("refresh_token")
	if storedTok != creds.AccessToken || storedRefresh != creds.RefreshToken {
		t.Fatal("rotated pair not persisted")
	}
}

func TestRefreshFailsFastWithoutRefreshToken(t *testing.T) {
	b := newTestBackend(t)
	m := newTestManager(t, b, nil)

	m.store.Set("token", signedToken(t, b.user.Email, time.Now().Add(-time.Minute)))

	_, err := m.refresher.Refresh(context.Background())
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshCalls != 0 {
		t.Fatalf("refresh endpoint must not be called, got %d calls", b.refreshCalls)
	}
}

func TestRefreshRetriesOnceOnTransientFailure(t *testing.T) {
	b := newTestBackend(t)
	m := newTestManager(t, b, nil)
	mustLogin(t, m, b)

	b.mu.Lock()
	b.refreshStatus = http.StatusInternalServerError
	b.mu.Unlock()

	_, err := m.refresher.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected refresh to fail")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshCalls != 2 {
		t.Fatalf("expected initial attempt plus one retry, got %d calls", b.refreshCalls)
	}
}

func TestRefreshEmitsTokenRefreshEvent(t *testing.T) {
	b := newTestBackend(t)
	m := newTestManager(t, b, nil)
	mustLogin(t, m, b)

	got := make(chan EventRecord, 1)
	m.On(EventTokenRefresh, func(rec EventRecord) { got <- rec })

	if _, err := m.refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	select {
	case rec := <-got:
		if rec.Event != "token_refresh" {
			t.Fatalf("unexpected event %q", rec.Event)
		}
	default:
		t.Fatal("token_refresh event not emitted")
	}
}
