package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
)

// Store is a storage.TableEngine backed by one SQLite database file.
type Store struct {
	db     *sqlx.DB
	q      queries
	logger *slog.Logger
}

var _ storage.TableEngine = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path and migrates the
// snapshot catalog.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolve path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = int(DefaultBusyTimeout / time.Millisecond)
	}
	// Foreign keys stay unenforced: rollback drops and recreates tables, and
	// with enforcement on DROP TABLE cascades into child tables.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(0)&_txlock=immediate", abs, busy)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = DefaultBusyTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Store{
		db:     db,
		q:      queries{ext: db, logger: logger},
		logger: logger,
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("sqlite store opened", "path", abs, "busy_timeout_ms", busy)
	return s, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sqlx.DB for callers that seed or inspect data.
func (s *Store) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Describe implements storage.Reader.
func (s *Store) Describe(ctx context.Context, table string) (*storage.TableInfo, error) {
	return s.q.describe(ctx, table)
}

// Scan implements storage.Reader.
func (s *Store) Scan(ctx context.Context, req storage.ScanRequest, fn func(*storage.Chunk) error) error {
	return s.q.scan(ctx, req, fn)
}

// CountRows implements storage.Reader.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	return s.q.countRows(ctx, table)
}

// Snapshot implements storage.Reader.
func (s *Store) Snapshot(ctx context.Context, table, name string) (*domain.Snapshot, error) {
	return s.q.snapshot(ctx, table, name)
}

// Snapshots implements storage.Reader.
func (s *Store) Snapshots(ctx context.Context, table string) ([]*domain.Snapshot, error) {
	return s.q.snapshots(ctx, table)
}

// Atomic runs fn in one IMMEDIATE transaction. A panic in fn rolls back and
// is re-raised.
func (s *Store) Atomic(ctx context.Context, fn func(storage.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txn{queries: queries{ext: tx, logger: s.logger}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("sqlite rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: execute schema statement %d: %w", i+1, err)
		}
	}
	if err := addCatalogColumn(ctx, tx, "source_ddl", `TEXT NOT NULL DEFAULT ''`); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit migration: %w", err)
	}
	return nil
}

// addCatalogColumn adds a column to catalogs created before it existed.
func addCatalogColumn(ctx context.Context, tx *sqlx.Tx, name, decl string) error {
	var n int
	if err := tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, CatalogTable, name); err != nil {
		return fmt.Errorf("sqlite: inspect catalog: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE "+CatalogTable+" ADD COLUMN "+name+" "+decl); err != nil {
		return fmt.Errorf("sqlite: add catalog column %s: %w", name, err)
	}
	return nil
}

// CatalogTable holds one row per snapshot.
const CatalogTable = "_wi_snapshot_catalog"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS _wi_snapshot_catalog (
		source_table   TEXT NOT NULL COLLATE NOCASE,
		name           TEXT NOT NULL,
		physical_table TEXT NOT NULL UNIQUE,
		created_at     TEXT NOT NULL,
		comment        TEXT NOT NULL DEFAULT '',
		row_count      INTEGER NOT NULL DEFAULT 0,
		source_ddl     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (source_table, name)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_wi_snapshot_catalog_created
		ON _wi_snapshot_catalog(source_table, created_at);`,
}

// txn is the storage.Tx handed to Atomic callbacks.
type txn struct {
	queries
}

var _ storage.Tx = (*txn)(nil)

func (t *txn) Describe(ctx context.Context, table string) (*storage.TableInfo, error) {
	return t.describe(ctx, table)
}

func (t *txn) Scan(ctx context.Context, req storage.ScanRequest, fn func(*storage.Chunk) error) error {
	return t.scan(ctx, req, fn)
}

func (t *txn) CountRows(ctx context.Context, table string) (int64, error) {
	return t.countRows(ctx, table)
}

func (t *txn) Snapshot(ctx context.Context, table, name string) (*domain.Snapshot, error) {
	return t.snapshot(ctx, table, name)
}

func (t *txn) Snapshots(ctx context.Context, table string) ([]*domain.Snapshot, error) {
	return t.snapshots(ctx, table)
}

func (t *txn) CopyTable(ctx context.Context, src, dst string) error {
	return t.copyTable(ctx, src, dst)
}

func (t *txn) RestoreTable(ctx context.Context, src, target, definition string) error {
	return t.restoreTable(ctx, src, target, definition)
}

func (t *txn) DropTable(ctx context.Context, table string) error {
	return t.dropTable(ctx, table)
}

func (t *txn) InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	return t.insertSnapshot(ctx, snap)
}

func (t *txn) DeleteSnapshot(ctx context.Context, table, name string) error {
	return t.deleteSnapshot(ctx, table, name)
}
