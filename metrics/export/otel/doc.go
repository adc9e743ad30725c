// Package otel bridges engine metrics into an OpenTelemetry meter via
// observable instruments. Counters map to Int64ObservableCounter; histogram
// buckets are exported as cumulative gauges since the core snapshot already
// bucketed the samples.
package otel
