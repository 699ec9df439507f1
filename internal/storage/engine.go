package storage

import (
	"context"
	"errors"

	"github.com/yndnr/wrought-go/internal/core/domain"
)

// Sentinel errors returned by implementations. Driver errors are wrapped
// with %w; services translate both into the domain taxonomy.
var (
	ErrTableNotFound    = errors.New("table not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotExists   = errors.New("snapshot already exists")
)

// ScanRequest describes an ordered, projected, chunked read.
type ScanRequest struct {
	Table   string
	Columns []string // Projection; may be empty, in which case rows carry no values
	OrderBy []string // Ascending, NULLs first
	// TieBreak appends the physical row position as a final sort term.
	TieBreak  bool
	ChunkSize int
}

// Chunk is a run of at most ScanRequest.ChunkSize rows. Row values are
// driver-native scalars: int64, float64, string, []byte, time.Time, bool or nil.
type Chunk struct {
	Columns []string
	Rows    [][]any
}

// Reader is the read side of the storage collaborator.
type Reader interface {
	// Describe returns the shape of a table. ErrTableNotFound if absent.
	Describe(ctx context.Context, table string) (*TableInfo, error)

	// Scan streams rows in chunks, calling fn once per chunk in order.
	// A non-nil error from fn stops the scan and is returned as is.
	Scan(ctx context.Context, req ScanRequest, fn func(*Chunk) error) error

	// CountRows returns the number of rows in a table.
	CountRows(ctx context.Context, table string) (int64, error)

	// Snapshot returns the catalog entry for (table, name).
	// ErrSnapshotNotFound if absent.
	Snapshot(ctx context.Context, table, name string) (*domain.Snapshot, error)

	// Snapshots lists catalog entries for table, newest first.
	Snapshots(ctx context.Context, table string) ([]*domain.Snapshot, error)
}

// Tx is a Reader bound to one transaction plus the mutations that commit
// or roll back together.
type Tx interface {
	Reader

	// CopyTable creates dst with src's columns, declared types and primary
	// key and copies all rows. Constraints that reach other tables are not
	// carried over.
	CopyTable(ctx context.Context, src, dst string) error

	// RestoreTable replaces target with a table built from definition, a
	// CREATE TABLE statement, holding src's rows. An empty definition uses
	// src's own. target is never left dropped: the copy is staged before
	// target is replaced.
	RestoreTable(ctx context.Context, src, target, definition string) error

	// DropTable drops a table.
	DropTable(ctx context.Context, table string) error

	// InsertSnapshot adds a catalog entry. ErrSnapshotExists on collision.
	InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error

	// DeleteSnapshot removes a catalog entry. ErrSnapshotNotFound if absent.
	DeleteSnapshot(ctx context.Context, table, name string) error
}

// TableEngine is the storage collaborator handle passed into every service.
type TableEngine interface {
	Reader

	// Atomic runs fn inside one transaction, committing if fn returns nil
	// and rolling back otherwise.
	Atomic(ctx context.Context, fn func(Tx) error) error

	Close() error
}
