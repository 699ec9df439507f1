package domain

import "time"

// Audit actions recorded by the CLI.
const (
	ActionHashCreate     = "hash.create"
	ActionHashVerify     = "hash.verify"
	ActionSnapshotCreate = "snapshot.create"
	ActionSnapshotDelete = "snapshot.delete"
	ActionRollback       = "rollback"
	ActionRollbackDryRun = "rollback.dry_run"
	ActionDriftCheck     = "drift.check"
	ActionLedgerBackup   = "ledger.backup"
	ActionLedgerRestore  = "ledger.restore"
)

// AuditEntry is one line of the chain-of-custody log.
type AuditEntry struct {
	ID        string    `json:"id" yaml:"id" table:"wide"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	User      string    `json:"user" yaml:"user"`
	Action    string    `json:"action" yaml:"action"`
	Table     string    `json:"table" yaml:"table"`
	Outcome   string    `json:"outcome" yaml:"outcome"`
	Details   string    `json:"details" yaml:"details"`
}

// FingerprintRecord is a fingerprint persisted by the caller for later
// verification.
type FingerprintRecord struct {
	ID              string    `json:"id" yaml:"id" table:"wide"`
	Table           string    `json:"table" yaml:"table"`
	Algorithm       Algorithm `json:"algorithm" yaml:"algorithm"`
	Digest          string    `json:"digest" yaml:"digest"`
	Rows            int64     `json:"rows" yaml:"rows"`
	Strict          bool      `json:"strict" yaml:"strict"`
	ExcludedColumns []string  `json:"excluded_columns,omitempty" yaml:"excluded_columns,omitempty" table:"wide"`
	ChunkSize       int       `json:"chunk_size" yaml:"chunk_size" table:"wide"`
	Salted          bool      `json:"salted" yaml:"salted"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	User            string    `json:"user" yaml:"user" table:"wide"`
}

// NewFingerprintRecord captures fp and the options that produced it. The
// salt itself is never stored.
func NewFingerprintRecord(fp *Fingerprint, opts FingerprintOptions) *FingerprintRecord {
	excluded := append([]string(nil), opts.ExcludedColumns...)
	return &FingerprintRecord{
		Table:           fp.Table,
		Algorithm:       fp.Algorithm,
		Digest:          fp.Digest,
		Rows:            fp.Rows,
		Strict:          opts.Strict,
		ExcludedColumns: excluded,
		ChunkSize:       opts.ChunkSize,
		Salted:          len(opts.Salt) > 0,
	}
}
