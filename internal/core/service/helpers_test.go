package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage/sqlite"
	"github.com/yndnr/wrought-go/internal/telemetry/logger"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	cfg := sqlite.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "wi.db")
	s, err := sqlite.Open(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func exec(t *testing.T, s *sqlite.Store, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if _, err := s.DB().Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func quiet() Option {
	return WithLogger(logger.Nop())
}

func seedOrders(t *testing.T, s *sqlite.Store) {
	t.Helper()
	exec(t, s,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT NOT NULL, total REAL, updated_at TEXT)`,
		`INSERT INTO orders VALUES (1, 'alice', 10.5, '2024-01-01')`,
		`INSERT INTO orders VALUES (2, 'bob', 20.0, '2024-01-02')`,
		`INSERT INTO orders VALUES (3, 'carol', NULL, '2024-01-03')`,
	)
}

func digest(t *testing.T, s *FingerprintService, table string, opts domain.FingerprintOptions) string {
	t.Helper()
	fp, err := s.Compute(context.Background(), table, opts)
	if err != nil {
		t.Fatalf("Compute(%s) error = %v", table, err)
	}
	return fp.Digest
}
