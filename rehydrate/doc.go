// Package rehydrate implements the startup barrier that holds the first route decision until
// persisted session state has been restored, has failed, or has timed out.
//
// A [Gate] moves Pending → Rehydrated on success, or Pending → RehydrationFailed →
// Rehydrated (with defaults) on timeout or load failure. It never blocks forever and never
// reports an error to the UI: failures are logged and recorded in the [Outcome].
package rehydrate
