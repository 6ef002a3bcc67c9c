// Package otel binds client metrics to OpenTelemetry asynchronous instruments.
//
// Every client counter becomes an Int64ObservableCounter. Latency histograms become a
// "<name>_bucket" counter carrying an "le" attribute per upper bound plus a "<name>_count"
// counter, mirroring the Prometheus layout. One callback reads a single snapshot per
// collection cycle. Callers own the MeterProvider.
package otel
