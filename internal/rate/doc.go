// Package rate throttles repeated failed logins.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. The window starts at
// the first failure and lasts Config.Cooldown. Keys are prefixed al: and the identifier
// is case-folded.
//
// Two counter stores are provided: [RedisCounter], shared across processes, and
// [MemoryCounter] for a single client.
package rate
