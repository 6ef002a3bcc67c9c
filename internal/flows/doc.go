// Package flows contains the orchestrators behind every Client operation.
//
// Each flow function (RunLogin, RunLogout, RunUpdateUser, NewRehydrateLoader) accepts a
// typed dependency struct of callbacks and returns results without side effects beyond
// those dependencies. The root Client owns the session store, persistence adapter,
// gateway, audit dispatcher and metrics; flows only sequence calls to them.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency callbacks.
package flows
