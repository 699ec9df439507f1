package config

import (
	"time"

	"github.com/yndnr/wrought-go/internal/core/domain"
)

// Default configuration values.
const (
	DefaultDatabasePath = "wi.db"
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1

	DefaultLedgerDir       = "~/.wi/ledger"
	DefaultBackupRetention = 5

	DefaultAlgorithm = "sha256"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseSection{
			Path:         DefaultDatabasePath,
			BusyTimeout:  DefaultBusyTimeout,
			MaxOpenConns: DefaultMaxOpenConns,
		},
		Ledger: LedgerSection{
			Enabled:         true,
			Dir:             DefaultLedgerDir,
			BackupRetention: DefaultBackupRetention,
		},
		Fingerprint: FingerprintSection{
			Algorithm: DefaultAlgorithm,
			ChunkSize: domain.DefaultChunkSize,
		},
		Drift: DriftSection{
			Threshold: domain.DefaultDriftThreshold,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
