// Package metrics defines the Prometheus counters and histograms recorded
// during encode runs and exports them as a node exporter textfile.
package metrics
