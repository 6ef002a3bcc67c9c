// Package session holds the client-side session state machine and the persisted slice codec.
//
// # State machine
//
// A [Session] moves between three derived statuses: Anonymous, Authenticating and
// Authenticated. Transitions are expressed as a closed set of [Action] values and applied by
// the pure [Reduce] function. The [Store] wraps Reduce with a mutex so that transitions are
// atomic and never interleave, and fans out every accepted transition to subscribers.
//
// # Persisted slice
//
// Only the token and user profile cross into durable storage. [Slice] extracts them and
// [EncodeSnapshot] / [DecodeSnapshot] convert them to a compact versioned binary format.
//
// # What this package must NOT do
//
//   - Perform I/O. Persistence and network calls belong to the persist and gateway packages.
//   - Retry failed logins. A rejected credential maps to exactly one LoginFailure.
//   - Import the root goSession package (no upward imports).
package session
