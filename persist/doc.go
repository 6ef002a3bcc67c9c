// Package persist bridges the session store to a durable key-value substrate.
//
// A [Backend] is a plain byte-oriented key-value store ([Memory], [Redis], [File]).
// [Encrypted] seals every value with XChaCha20-Poly1305 before it reaches a Backend.
// [Adapter] applies the failure policy: reads fail soft to "absent" (a missing or unreadable
// value is a normal first-run condition and forces a fresh login), while write and delete
// failures are returned so the caller can decide to retry or surface them.
package persist
