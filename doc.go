// Package farmsession manages the client-side authentication session for a
// farm-management dashboard: acquiring, storing, proactively renewing, and
// safely sharing an access/refresh token pair across an application that
// issues many concurrent API calls.
//
// The package is designed for concurrent client workloads: Manager methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// farmsession is the public surface. It exposes [Manager], [Builder],
// [Config], [Transport], and value types (User, Credentials, MetricsSnapshot,
// EventRecord). Coordination internals — the event dispatcher and the retry
// policy — live under internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Verify token signatures. The access token is inspected, never trusted;
//     the backend is the sole authority on validity.
//   - Interpret domain payloads. Resource endpoints (/birds, /eggs, /feed,
//     /medicine, /users) flow through [Manager.Do] or [Transport] opaquely.
//   - Clear a usable cached session because a network call failed. Only
//     authentication-specific failures destroy session state, and those are
//     subject to the post-login grace window.
//
// # Concurrency contract
//
// Any number of goroutines may race into a token refresh; exactly one network
// exchange runs and all of them observe its outcome. InitializeAuth is
// likewise single-flight. At most one proactive-renewal timer is live at any
// time.
package farmsession
