// Package prometheus exposes client metrics as a prometheus.Collector.
//
// [NewExporter] wraps a [goSession.Client]. Register the exporter with your own registry
// or mount [Exporter.Handler]. Counters are named gosession_*_total; the two latency
// histograms are gosession_login_latency_seconds and gosession_rehydrate_latency_seconds.
package prometheus
