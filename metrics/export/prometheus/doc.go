// Package prometheus provides Prometheus collectors for farmsession metrics.
//
// [NewPrometheusExporter] accepts a [farmsession.Manager] and exposes an [http.Handler]
// that renders all farmsession counters and histograms in Prometheus text exposition
// format. Counter names are prefixed farmsession_*_total; the single histogram is
// farmsession_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate manager state.
package prometheus
