package domain

import (
	"strings"
	"time"
)

// Snapshot is a catalog entry describing an immutable copy of a table.
// (SourceTable, Name) is unique.
type Snapshot struct {
	Name          string    `json:"name" yaml:"name"`
	SourceTable   string    `json:"source_table" yaml:"source_table"`
	PhysicalTable string    `json:"physical_table" yaml:"physical_table" table:"wide"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	Comment       string    `json:"comment" yaml:"comment"`
	RowCount      int64     `json:"row_count" yaml:"row_count"`
	// SourceDDL is the source table's CREATE TABLE statement at snapshot
	// time; empty for snapshots taken before it was recorded.
	SourceDDL string `json:"source_ddl,omitempty" yaml:"source_ddl,omitempty" table:"-"`
}

// MaxSnapshotNameLength bounds snapshot names.
const MaxSnapshotNameLength = 128

// ValidateSnapshotName rejects empty, oversized or control-character names.
func ValidateSnapshotName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidOptions.WithDetails("snapshot name is required")
	}
	if len(name) > MaxSnapshotNameLength {
		return ErrInvalidOptions.WithDetailsf("snapshot name exceeds %d bytes", MaxSnapshotNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return ErrInvalidOptions.WithDetails("snapshot name contains control characters")
		}
	}
	return nil
}

// RollbackResult describes a rollback. For a dry run nothing is mutated and
// Diff describes what a real rollback would do.
type RollbackResult struct {
	Table        string    `json:"table" yaml:"table"`
	Snapshot     string    `json:"snapshot" yaml:"snapshot"`
	DryRun       bool      `json:"dry_run" yaml:"dry_run"`
	CurrentRows  int64     `json:"current_rows" yaml:"current_rows"`
	SnapshotRows int64     `json:"snapshot_rows" yaml:"snapshot_rows"`
	Diff         *RowDiff  `json:"diff,omitempty" yaml:"diff,omitempty"`
	RestoredAt   time.Time `json:"restored_at,omitempty" yaml:"restored_at,omitempty"`
}

// RowDelta is SnapshotRows - CurrentRows: the change in row count a rollback
// applies.
func (r *RollbackResult) RowDelta() int64 {
	return r.SnapshotRows - r.CurrentRows
}

// RowDiff counts the row-level changes rolling back would apply to the
// current table.
type RowDiff struct {
	// KeyColumns is the primary key both sides share; empty when rows are
	// compared as whole-row multisets.
	KeyColumns    []string `json:"key_columns,omitempty" yaml:"key_columns,omitempty"`
	RowsToAdd     int64    `json:"rows_to_add" yaml:"rows_to_add"`
	RowsToRemove  int64    `json:"rows_to_remove" yaml:"rows_to_remove"`
	RowsToChange  int64    `json:"rows_to_change" yaml:"rows_to_change"`
	Unchanged     int64    `json:"unchanged" yaml:"unchanged"`
	SchemaChanged bool     `json:"schema_changed" yaml:"schema_changed"`
}

// Empty reports whether the rollback would be a no-op on row contents.
func (d *RowDiff) Empty() bool {
	return d.RowsToAdd == 0 && d.RowsToRemove == 0 && d.RowsToChange == 0 && !d.SchemaChanged
}
