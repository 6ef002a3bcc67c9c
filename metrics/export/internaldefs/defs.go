package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef binds a client counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds a client latency histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that reached the authenticated state."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected or not answered by the gateway."},
	{ID: goSession.MetricLoginInvalidInput, Name: "gosession_login_invalid_input_total", Help: "Logins rejected by credential validation."},
	{ID: goSession.MetricLoginInProgress, Name: "gosession_login_in_progress_total", Help: "Login submissions rejected while another was in flight."},
	{ID: goSession.MetricLoginStale, Name: "gosession_login_stale_total", Help: "Gateway results dropped because a newer attempt or a logout won."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts that cleared a session."},
	{ID: goSession.MetricLogoutRevokeFailure, Name: "gosession_logout_revoke_failure_total", Help: "Gateway logout calls that failed."},
	{ID: goSession.MetricProfileUpdate, Name: "gosession_profile_update_total", Help: "Accepted profile updates."},
	{ID: goSession.MetricPersistWriteFailure, Name: "gosession_persist_write_failure_total", Help: "Session slice writes rejected by storage."},
	{ID: goSession.MetricPersistDeleteFailure, Name: "gosession_persist_delete_failure_total", Help: "Session slice removals rejected by storage."},
	{ID: goSession.MetricPersistPurgeFailure, Name: "gosession_persist_purge_failure_total", Help: "Corrupt session slices that could not be removed."},
	{ID: goSession.MetricRehydrateRestored, Name: "gosession_rehydrate_restored_total", Help: "Starts that restored an authenticated session."},
	{ID: goSession.MetricRehydrateEmpty, Name: "gosession_rehydrate_empty_total", Help: "Starts with nothing persisted."},
	{ID: goSession.MetricRehydrateCorrupt, Name: "gosession_rehydrate_corrupt_total", Help: "Starts that found an undecodable session slice."},
	{ID: goSession.MetricRehydrateDefaulted, Name: "gosession_rehydrate_defaulted_total", Help: "Starts that fell back to an empty session."},
	{ID: goSession.MetricRehydrateTimeout, Name: "gosession_rehydrate_timeout_total", Help: "Starts whose restore exceeded the timeout."},
	{ID: goSession.MetricInvalidTransition, Name: "gosession_invalid_transition_total", Help: "Actions rejected by the session reducer."},
	{ID: goSession.MetricLoginThrottled, Name: "gosession_login_throttled_total", Help: "Logins refused because the attempt budget was spent."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoginLatency, Name: "gosession_login_latency_seconds", Help: "Gateway login round trip."},
	{ID: goSession.MetricRehydrateLatency, Name: "gosession_rehydrate_latency_seconds", Help: "Startup restore duration."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure counter.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// HistogramBounds are the upper bounds of the client histogram buckets, in text form.
var HistogramBounds = []string{
	"0.01",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramUpperBounds are the finite upper bounds in seconds. The last bucket is +Inf.
var HistogramUpperBounds = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
