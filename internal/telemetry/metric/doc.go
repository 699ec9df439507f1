// Package metric provides Prometheus metrics for wrought.
//
// A Registry owns a private prometheus.Registry holding:
//
//   - wi_fingerprint_rows_total and wi_fingerprint_duration_seconds
//   - wi_verifications_total
//   - wi_snapshot_operations_total
//   - wi_drift_columns_total and wi_drift_checks_total
//
// The CLI is a one-shot process, so metrics are exported with
// WriteTextfile for the node_exporter textfile collector rather than
// served over HTTP. A nil *Registry is valid and records nothing.
package metric
