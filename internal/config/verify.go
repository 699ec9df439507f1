package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/wrought-go/internal/core/domain"
)

// Verify validates the configuration. Failures are domain.ErrInvalidOptions.
func Verify(cfg *Config) error {
	if err := verifyDatabase(&cfg.Database); err != nil {
		return err
	}
	if err := verifyLedger(&cfg.Ledger); err != nil {
		return err
	}
	if _, err := cfg.Fingerprint.Options(); err != nil {
		return err
	}
	if err := domain.ValidateThreshold(cfg.Drift.Threshold); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyDatabase(cfg *DatabaseSection) error {
	if strings.TrimSpace(cfg.Path) == "" {
		return domain.ErrInvalidOptions.WithDetails("database.path is required")
	}
	if cfg.BusyTimeout < 0 {
		return domain.ErrInvalidOptions.WithDetails("database.busy_timeout must not be negative")
	}
	if cfg.MaxOpenConns < 1 {
		return domain.ErrInvalidOptions.WithDetails("database.max_open_conns must be at least 1")
	}
	return nil
}

func verifyLedger(cfg *LedgerSection) error {
	if cfg.Enabled && strings.TrimSpace(cfg.Dir) == "" {
		return domain.ErrInvalidOptions.WithDetails("ledger.dir is required when the ledger is enabled")
	}
	if cfg.BackupRetention < 1 {
		return domain.ErrInvalidOptions.WithDetails("ledger.backup_retention must be at least 1")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return domain.ErrInvalidOptions.WithDetailsf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "text", "json":
	default:
		return domain.ErrInvalidOptions.WithDetailsf("log.format %q is not text or json", cfg.Format)
	}
	return nil
}

// Options converts the section into core fingerprint options.
func (s FingerprintSection) Options() (domain.FingerprintOptions, error) {
	alg, err := domain.ParseAlgorithm(s.Algorithm)
	if err != nil {
		return domain.FingerprintOptions{}, err
	}
	opts := domain.FingerprintOptions{
		Algorithm: alg,
		ChunkSize: s.ChunkSize,
	}
	if s.Salt != "" {
		opts.Salt = []byte(s.Salt)
	}
	if err := opts.Validate(); err != nil {
		return domain.FingerprintOptions{}, err
	}
	return opts, nil
}

// ResolvedDir returns the ledger directory with a leading "~" expanded.
func (s LedgerSection) ResolvedDir() (string, error) {
	return ExpandHome(s.Dir)
}

// ResolvedBackupDir returns the backup archive directory, defaulting to
// "backups" next to the ledger directory.
func (s LedgerSection) ResolvedBackupDir() (string, error) {
	if strings.TrimSpace(s.BackupDir) != "" {
		return ExpandHome(s.BackupDir)
	}
	dir, err := s.ResolvedDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(filepath.Clean(dir)), "backups"), nil
}

// ExpandHome replaces a leading "~" path element with the user's home
// directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", domain.ErrInvalidOptions.WithDetails("cannot expand ~: " + err.Error())
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
