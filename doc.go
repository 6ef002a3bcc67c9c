// Package goSession manages the client-side session lifecycle of a storefront app: login and
// logout against a credential gateway, an authoritative in-memory session, encrypted
// persistence of the session slice, and a rehydration gate that holds the first route
// decision until persisted state has been restored.
//
// Construct a [Client] through [Builder.Build], call [Client.Start] once at app start, and
// read state through [Client.State], [Client.Subscribe] and [Client.Route]. Client methods
// are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config] and value types
// (LoginResult, MetricsSnapshot, AuditEvent). The state machine lives in the session
// package; flow orchestration, audit dispatch and logging setup live under internal/.
//
// # What this package must NOT do
//
//   - Persist anything other than the session slice (token and user profile).
//   - Let a storage read failure surface to the UI. Reads degrade to "no prior session".
//   - Ship a built-in encryption key. Secrets come from configuration.
package goSession
