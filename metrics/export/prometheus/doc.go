// Package prometheus renders engine metrics in Prometheus text exposition
// format without importing a Prometheus client library. The exporter reads
// a snapshot on every scrape, so output is always consistent.
package prometheus
