// Package gateway exchanges credentials for a session token and user profile.
//
// Three implementations share the [Gateway] contract: [Mock], which simulates a fixed network
// round trip and rejects a designated address; [HTTP], a JSON client with bounded retry for a
// real backend; and [Directory], an in-process account table with Argon2id password hashes.
// All of them run [Validate] before doing any I/O, so malformed credentials fail fast with
// [ErrInvalidInput].
package gateway
