package config

import "time"

// Config is the root configuration for wi.
type Config struct {
	Database    DatabaseSection    `koanf:"database" json:"database" yaml:"database"`
	Ledger      LedgerSection      `koanf:"ledger" json:"ledger" yaml:"ledger"`
	Fingerprint FingerprintSection `koanf:"fingerprint" json:"fingerprint" yaml:"fingerprint"`
	Drift       DriftSection       `koanf:"drift" json:"drift" yaml:"drift"`
	Log         LogSection         `koanf:"log" json:"log" yaml:"log"`
	Metrics     MetricsSection     `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// DatabaseSection configures the SQLite database holding the tables.
type DatabaseSection struct {
	Path         string        `koanf:"path" json:"path" yaml:"path"`
	BusyTimeout  time.Duration `koanf:"busy_timeout" json:"busy_timeout" yaml:"busy_timeout"`
	MaxOpenConns int           `koanf:"max_open_conns" json:"max_open_conns" yaml:"max_open_conns"`
}

// LedgerSection configures the audit log and fingerprint registry.
type LedgerSection struct {
	Enabled    bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Dir        string `koanf:"dir" json:"dir" yaml:"dir"`
	SyncWrites bool   `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`

	// BackupDir holds ledger backup archives. Empty means a "backups"
	// directory next to Dir.
	BackupDir       string `koanf:"backup_dir" json:"backup_dir" yaml:"backup_dir"`
	BackupRetention int    `koanf:"backup_retention" json:"backup_retention" yaml:"backup_retention"`
}

// FingerprintSection holds fingerprint defaults; command flags override them.
type FingerprintSection struct {
	Algorithm string `koanf:"algorithm" json:"algorithm" yaml:"algorithm"`
	ChunkSize int    `koanf:"chunk_size" json:"chunk_size" yaml:"chunk_size"`
	// Salt is secret. Use Sanitize before displaying a Config.
	Salt string `koanf:"salt" json:"salt" yaml:"salt"`
}

// DriftSection holds drift check defaults.
type DriftSection struct {
	Threshold float64 `koanf:"threshold" json:"threshold" yaml:"threshold"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// MetricsSection configures metrics export.
type MetricsSection struct {
	// Textfile is a path written in Prometheus text format after every
	// command. Empty disables export.
	Textfile string `koanf:"textfile" json:"textfile" yaml:"textfile"`
}
