// Package events implements async delivery of session-state transition records.
//
// # Components
//
//   - [Sink] — interface for record consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Record] — structured transition record with timestamp, event name, user,
//     and failure reason.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery only. Which transitions to emit
// is decided by the session manager; synchronous UI-facing subscription lives in
// the root package's Bus, not here.
//
// # What this package must NOT do
//
//   - Filter or suppress records based on business logic.
//   - Import farmsession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package events
