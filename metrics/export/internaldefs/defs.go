package internaldefs

import (
	farmsession "github.com/Slandbot/farmsession"
)

// CounterDef defines a public type used by farmsession APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   farmsession.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by farmsession APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   farmsession.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session manager.
var CounterDefs = []CounterDef{
	{ID: farmsession.MetricLoginSuccess, Name: "farmsession_login_success_total", Help: "Successful login attempts."},
	{ID: farmsession.MetricLoginFailure, Name: "farmsession_login_failure_total", Help: "Failed login attempts."},
	{ID: farmsession.MetricRegisterSuccess, Name: "farmsession_register_success_total", Help: "Successful registrations."},
	{ID: farmsession.MetricRegisterFailure, Name: "farmsession_register_failure_total", Help: "Failed registrations."},
	{ID: farmsession.MetricRefreshSuccess, Name: "farmsession_refresh_success_total", Help: "Successful token refresh exchanges."},
	{ID: farmsession.MetricRefreshFailure, Name: "farmsession_refresh_failure_total", Help: "Failed token refresh exchanges."},
	{ID: farmsession.MetricRefreshCoalesced, Name: "farmsession_refresh_coalesced_total", Help: "Refresh requests coalesced into an in-flight exchange."},
	{ID: farmsession.MetricSchedulerArmed, Name: "farmsession_scheduler_armed_total", Help: "Proactive renewal timer arm operations."},
	{ID: farmsession.MetricSchedulerFired, Name: "farmsession_scheduler_fired_total", Help: "Proactive renewal timer firings."},
	{ID: farmsession.MetricRequestRetried, Name: "farmsession_request_retried_total", Help: "Request attempts retried after a retryable failure."},
	{ID: farmsession.MetricSessionExpired, Name: "farmsession_session_expired_total", Help: "Sessions cleared after terminal authentication failure."},
	{ID: farmsession.MetricPermissionDenied, Name: "farmsession_permission_denied_total", Help: "Requests rejected with 403."},
	{ID: farmsession.MetricLogout, Name: "farmsession_logout_total", Help: "Logout operations."},
	{ID: farmsession.MetricInitFromCache, Name: "farmsession_init_from_cache_total", Help: "Boot initializations served from the cached user record."},
	{ID: farmsession.MetricInitFromToken, Name: "farmsession_init_from_token_total", Help: "Boot initializations recovered from a stored token."},
}

// HistogramDefs is an exported constant or variable used by the session manager.
var HistogramDefs = []HistogramDef{
	{ID: farmsession.MetricRequestLatency, Name: "farmsession_request_latency_seconds", Help: "Authenticated request latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session manager.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session manager.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
