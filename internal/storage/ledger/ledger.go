package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/telemetry/metric"
)

// Common errors
var (
	ErrNotFound = errors.New("ledger: no matching record")
)

// Key layout. Table names may contain '/', so a NUL ends the table segment.
const (
	auditPrefix       = "audit/"
	fingerprintPrefix = "fingerprint/"
	tableTerminator   = "\x00"
)

// gcDiscardRatio is the value log discard ratio passed to Badger GC.
const gcDiscardRatio = 0.5

// Config holds ledger configuration.
type Config struct {
	// Dir is the Badger directory. Ignored when InMemory is set.
	Dir string
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// InMemory keeps everything in memory; used by tests.
	InMemory bool
}

// Ledger is the append-only audit log and fingerprint registry.
type Ledger struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time

	lastGC atomic.Int64 // Unix milliseconds
	gcRuns atomic.Uint64
}

// Open opens or creates the ledger.
func Open(cfg Config, logger *slog.Logger) (*Ledger, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("ledger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", cfg.Dir, err)
	}

	logger.Debug("ledger opened", "dir", cfg.Dir, "in_memory", cfg.InMemory, "sync_writes", cfg.SyncWrites)
	return &Ledger{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close flushes and closes the ledger.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}

// ============================================================================
// Audit log
// ============================================================================

// AuditFilter narrows Entries. Zero fields match everything.
type AuditFilter struct {
	Limit  int
	User   string
	Action string
	Table  string
}

func (f AuditFilter) match(e *domain.AuditEntry) bool {
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Table != "" && !strings.EqualFold(e.Table, f.Table) {
		return false
	}
	return true
}

// Record appends e, assigning its ID and timestamp when unset.
func (l *Ledger) Record(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	return l.put(ctx, auditPrefix+e.ID, e)
}

// Entries returns audit entries matching f, most recent first.
func (l *Ledger) Entries(ctx context.Context, f AuditFilter) ([]*domain.AuditEntry, error) {
	out := []*domain.AuditEntry{}
	err := l.scanReverse(ctx, auditPrefix, func(value []byte) (bool, error) {
		var e domain.AuditEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return false, fmt.Errorf("ledger: decode audit entry: %w", err)
		}
		if !f.match(&e) {
			return true, nil
		}
		out = append(out, &e)
		return f.Limit <= 0 || len(out) < f.Limit, nil
	})
	return out, err
}

// ============================================================================
// Fingerprint registry
// ============================================================================

func tablePrefix(table string) string {
	return fingerprintPrefix + strings.ToLower(table) + tableTerminator
}

// RecordFingerprint stores r, assigning its ID and creation time when unset.
func (l *Ledger) RecordFingerprint(ctx context.Context, r *domain.FingerprintRecord) error {
	if strings.TrimSpace(r.Table) == "" {
		return fmt.Errorf("ledger: fingerprint record without table")
	}
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now().UTC()
	}
	return l.put(ctx, tablePrefix(r.Table)+r.ID, r)
}

// Fingerprints returns up to limit records for table, most recent first.
// A non-positive limit returns all of them.
func (l *Ledger) Fingerprints(ctx context.Context, table string, limit int) ([]*domain.FingerprintRecord, error) {
	out := []*domain.FingerprintRecord{}
	err := l.scanReverse(ctx, tablePrefix(table), func(value []byte) (bool, error) {
		var r domain.FingerprintRecord
		if err := json.Unmarshal(value, &r); err != nil {
			return false, fmt.Errorf("ledger: decode fingerprint record: %w", err)
		}
		out = append(out, &r)
		return limit <= 0 || len(out) < limit, nil
	})
	return out, err
}

// LatestFingerprint returns the most recent record for table.
func (l *Ledger) LatestFingerprint(ctx context.Context, table string) (*domain.FingerprintRecord, error) {
	recs, err := l.Fingerprints(ctx, table, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no fingerprint recorded for %s", ErrNotFound, table)
	}
	return recs[0], nil
}

// ============================================================================
// Maintenance
// ============================================================================

// Stats describes ledger contents and size.
type Stats struct {
	AuditEntries uint64    `json:"audit_entries" yaml:"audit_entries"`
	Fingerprints uint64    `json:"fingerprints" yaml:"fingerprints"`
	LSMSize      int64     `json:"lsm_size" yaml:"lsm_size"`
	ValueLogSize int64     `json:"value_log_size" yaml:"value_log_size"`
	LastGC       time.Time `json:"last_gc,omitempty" yaml:"last_gc,omitempty"`
	GCRuns       uint64    `json:"gc_runs" yaml:"gc_runs"`
}

// TotalSize is LSM plus value log size.
func (s *Stats) TotalSize() int64 {
	return s.LSMSize + s.ValueLogSize
}

// Stats counts records and reports on-disk size.
func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	lsm, vlog := l.db.Size()
	stats := &Stats{
		LSMSize:      lsm,
		ValueLogSize: vlog,
		GCRuns:       l.gcRuns.Load(),
	}
	if ms := l.lastGC.Load(); ms > 0 {
		stats.LastGC = time.UnixMilli(ms).UTC()
	}

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			switch {
			case strings.HasPrefix(string(key), auditPrefix):
				stats.AuditEntries++
			case strings.HasPrefix(string(key), fingerprintPrefix):
				stats.Fingerprints++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: stats: %w", err)
	}
	return stats, nil
}

// GC rewrites value log files until Badger reports nothing to reclaim and
// returns the number of files rewritten.
func (l *Ledger) GC(ctx context.Context) (int, error) {
	start := time.Now()

	rewritten := 0
	for {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}
		err := l.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			return rewritten, fmt.Errorf("ledger: gc: %w", err)
		}
		rewritten++
	}

	l.lastGC.Store(time.Now().UnixMilli())
	l.gcRuns.Add(1)
	l.logger.Info("ledger gc completed", "files_rewritten", rewritten, "elapsed", time.Since(start))
	return rewritten, nil
}

// loadPendingWrites bounds in-flight batches while Restore replays a backup.
const loadPendingWrites = 16

// Backup streams a full Badger backup of the ledger to w.
func (l *Ledger) Backup(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	version, err := l.db.Backup(w, 0)
	if err != nil {
		return fmt.Errorf("ledger: backup: %w", err)
	}
	l.logger.Debug("ledger backup written", "version", version)
	return nil
}

// Restore loads a stream written by Backup. Records in the stream are
// merged into the ledger; existing records with other keys are kept.
func (l *Ledger) Restore(ctx context.Context, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.db.Load(r, loadPendingWrites); err != nil {
		return fmt.Errorf("ledger: restore: %w", err)
	}
	return nil
}

// RegisterMetrics exposes ledger size gauges through r.
func (l *Ledger) RegisterMetrics(r *metric.Registry) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "ledger",
			Name:      "lsm_size_bytes",
			Help:      "Ledger LSM tree size in bytes.",
		}, func() float64 {
			lsm, _ := l.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "ledger",
			Name:      "value_log_size_bytes",
			Help:      "Ledger value log size in bytes.",
		}, func() float64 {
			_, vlog := l.db.Size()
			return float64(vlog)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "ledger",
			Name:      "gc_runs_total",
			Help:      "Ledger garbage collection runs.",
		}, func() float64 {
			return float64(l.gcRuns.Load())
		}),
	}
	for _, g := range gauges {
		if err := r.Register(g); err != nil {
			return fmt.Errorf("ledger: register metrics: %w", err)
		}
	}
	return nil
}

// ============================================================================
// Badger helpers
// ============================================================================

func (l *Ledger) put(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger: encode %s: %w", key, err)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("ledger: write %s: %w", key, err)
	}
	return nil
}

// scanReverse visits values under prefix in descending key order until fn
// returns false. ULID suffixes make that newest first.
func (l *Ledger) scanReverse(ctx context.Context, prefix string, fn func(value []byte) (bool, error)) error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(prefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			more, err := fn(value)
			if err != nil {
				return err
			}
			if !more {
				break
			}
		}
		return nil
	})
}

// badgerLogger adapts slog.Logger to Badger's Logger interface. Badger's
// info output is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
