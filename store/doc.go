// Package store provides fault-tolerant key/value persistence for session state.
//
// # Components
//
//   - [Store] — the contract shared by all backends: operations signal success or
//     absence, never errors.
//   - [Memory] — in-process map, the default for tests and short-lived tools.
//   - [File] — JSON file on disk, the desktop analog of browser storage.
//   - [Redis] — go-redis backed, for deployments sharing a session across processes.
//
// # Failure contract
//
// Storage failure must degrade to "treat as logged out", never crash the caller.
// Get returns absent on any underlying failure; Set and Remove report false and
// log, and must not panic or propagate errors.
//
// # What this package must NOT do
//
//   - Interpret the values it stores (tokens and user JSON are opaque here).
//   - Import farmsession or any sibling package.
package store
