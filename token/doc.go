// Package token derives facts from access tokens without validating signatures.
//
// The trust boundary is the backend: the client only reasons about claims for
// scheduling and display purposes (expiry instants, subject email). Nothing in
// this package can authenticate a token, and nothing in it ever fails — malformed
// input degrades to empty claims.
//
// # What this package must NOT do
//
//   - Verify signatures or reject tokens (that is the backend's job).
//   - Panic or return errors on garbage input.
//   - Import farmsession or any sibling package (no import cycles).
package token
