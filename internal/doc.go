// Package internal holds goSession helpers that are not part of the public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: login, logout, profile and rehydrate orchestration over the session store
//   - logging: slog setup with service attributes, trace context and oops error fields
//   - rate: fixed-window login attempt throttling over Redis or memory counters
package internal
