package metric

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "wi"

// Result label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultMatch    = "match"
	ResultMismatch = "mismatch"
	ResultDrift    = "drift"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Fingerprint metrics
	FingerprintRows     *prometheus.CounterVec
	FingerprintDuration *prometheus.HistogramVec
	Verifications       *prometheus.CounterVec

	// Snapshot metrics
	SnapshotOperations *prometheus.CounterVec

	// Drift metrics
	DriftColumns *prometheus.CounterVec
	DriftChecks  *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		FingerprintRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fingerprint_rows_total",
			Help:      "Rows streamed into fingerprint digests",
		}, []string{"algorithm"}),
		FingerprintDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fingerprint_duration_seconds",
			Help:      "Time to compute one fingerprint",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"algorithm"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "verifications_total",
			Help:      "Fingerprint verifications by result",
		}, []string{"result"}),
		SnapshotOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "snapshot_operations_total",
			Help:      "Snapshot catalog operations by operation and result",
		}, []string{"operation", "result"}),
		DriftColumns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "drift_columns_total",
			Help:      "Columns compared by drift checks, by verdict",
		}, []string{"verdict"}),
		DriftChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "drift_checks_total",
			Help:      "Drift checks by overall result",
		}, []string{"result"}),
	}

	r.reg.MustRegister(
		r.FingerprintRows,
		r.FingerprintDuration,
		r.Verifications,
		r.SnapshotOperations,
		r.DriftColumns,
		r.DriftChecks,
	)
	return r
}

// Register adds an extra collector, such as ledger storage gauges.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.reg.Register(c)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// ObserveFingerprint records one completed fingerprint.
func (r *Registry) ObserveFingerprint(algorithm string, rows int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.FingerprintRows.WithLabelValues(algorithm).Add(float64(rows))
	r.FingerprintDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
}

// ObserveVerification records a verification outcome.
func (r *Registry) ObserveVerification(matched bool) {
	if r == nil {
		return
	}
	result := ResultMismatch
	if matched {
		result = ResultMatch
	}
	r.Verifications.WithLabelValues(result).Inc()
}

// ObserveSnapshotOperation records a create, rollback, dry run or delete.
func (r *Registry) ObserveSnapshotOperation(operation string, err error) {
	if r == nil {
		return
	}
	r.SnapshotOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// ObserveDriftColumn records one compared column.
func (r *Registry) ObserveDriftColumn(verdict string) {
	if r == nil {
		return
	}
	r.DriftColumns.WithLabelValues(verdict).Inc()
}

// ObserveDriftCheck records a finished drift check.
func (r *Registry) ObserveDriftCheck(drift bool, err error) {
	if r == nil {
		return
	}
	result := resultLabel(err)
	if err == nil && drift {
		result = ResultDrift
	}
	r.DriftChecks.WithLabelValues(result).Inc()
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is written atomically.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metric: write textfile: %w", err)
	}
	return nil
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
