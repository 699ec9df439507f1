package service

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
)

// PhysicalPrefix prefixes the storage table holding a snapshot's rows.
const PhysicalPrefix = "_wi_snap_"

// Snapshot operation labels for metrics and logs.
const (
	opCreate      = "create"
	opRollback    = "rollback"
	opRollbackDry = "rollback_dry_run"
	opDelete      = "delete"
)

// SnapshotService manages the snapshot catalog.
type SnapshotService struct {
	engine storage.TableEngine
	opts   options
}

// NewSnapshotService creates a SnapshotService over engine.
func NewSnapshotService(engine storage.TableEngine, opts ...Option) *SnapshotService {
	return &SnapshotService{
		engine: engine,
		opts:   buildOptions(opts),
	}
}

// NewPhysicalName returns a fresh, time-ordered physical table name.
func NewPhysicalName() string {
	return PhysicalPrefix + strings.ToLower(ulid.Make().String())
}

// ============================================================================
// Create
// ============================================================================

// CreateSnapshotRequest contains parameters for snapshot creation.
type CreateSnapshotRequest struct {
	Table   string // Required, source table
	Name    string // Required, unique per table
	Comment string // Optional
}

// Create copies the current contents of req.Table into a new physical table
// and catalogues it. Copy and catalog row commit together or not at all.
func (s *SnapshotService) Create(ctx context.Context, req *CreateSnapshotRequest) (*domain.Snapshot, error) {
	snap, err := s.create(ctx, req)
	s.opts.metrics.ObserveSnapshotOperation(opCreate, err)
	return snap, err
}

func (s *SnapshotService) create(ctx context.Context, req *CreateSnapshotRequest) (*domain.Snapshot, error) {
	// 1. Validate request
	if strings.TrimSpace(req.Table) == "" {
		return nil, domain.ErrInvalidOptions.WithDetails("table is required")
	}
	if err := domain.ValidateSnapshotName(req.Name); err != nil {
		return nil, err
	}
	ref := req.Table + "/" + req.Name

	var snap *domain.Snapshot
	err := s.engine.Atomic(ctx, func(tx storage.Tx) error {
		// 2. Reject collisions before touching data
		if _, err := tx.Snapshot(ctx, req.Table, req.Name); err == nil {
			return domain.ErrSnapshotExists.WithDetails(ref)
		} else if !errors.Is(err, storage.ErrSnapshotNotFound) {
			return err
		}

		// 3. Resolve the source table
		info, err := tx.Describe(ctx, req.Table)
		if err != nil {
			return err
		}

		// 4. Copy, count, catalogue
		physical := NewPhysicalName()
		if err := tx.CopyTable(ctx, info.Name, physical); err != nil {
			return err
		}
		rows, err := tx.CountRows(ctx, physical)
		if err != nil {
			return err
		}

		snap = &domain.Snapshot{
			Name:          req.Name,
			SourceTable:   info.Name,
			PhysicalTable: physical,
			CreatedAt:     s.opts.now().UTC(),
			Comment:       req.Comment,
			RowCount:      rows,
			SourceDDL:     info.DDL,
		}
		return tx.InsertSnapshot(ctx, snap)
	})
	if err != nil {
		return nil, translate(err, ref)
	}

	s.opts.logger.Info("snapshot created",
		"table", snap.SourceTable,
		"snapshot", snap.Name,
		"physical_table", snap.PhysicalTable,
		"rows", snap.RowCount)
	return snap, nil
}

// ============================================================================
// Rollback
// ============================================================================

// RollbackRequest contains parameters for a rollback.
type RollbackRequest struct {
	Table    string // Required
	Snapshot string // Required, catalogued name
	DryRun   bool   // Compare only, no mutation
}

// Rollback replaces req.Table with the snapshot's contents. With DryRun set
// nothing is mutated and the result carries row counts plus a RowDiff.
//
// The live table is replaced through a staged copy and rename inside one
// transaction, so a failure leaves it untouched.
func (s *SnapshotService) Rollback(ctx context.Context, req *RollbackRequest) (*domain.RollbackResult, error) {
	op := opRollback
	if req.DryRun {
		op = opRollbackDry
	}
	res, err := s.rollback(ctx, req)
	s.opts.metrics.ObserveSnapshotOperation(op, err)
	return res, err
}

func (s *SnapshotService) rollback(ctx context.Context, req *RollbackRequest) (*domain.RollbackResult, error) {
	// 1. Resolve the catalog entry
	if strings.TrimSpace(req.Table) == "" || strings.TrimSpace(req.Snapshot) == "" {
		return nil, domain.ErrInvalidOptions.WithDetails("table and snapshot are required")
	}
	ref := req.Table + "/" + req.Snapshot
	snap, err := s.engine.Snapshot(ctx, req.Table, req.Snapshot)
	if err != nil {
		return nil, translate(err, ref)
	}

	result := &domain.RollbackResult{
		Table:    snap.SourceTable,
		Snapshot: snap.Name,
		DryRun:   req.DryRun,
	}

	// 2. Dry run: compare only
	if req.DryRun {
		diff, current, snapshotRows, err := diffTables(ctx, s.engine, snap)
		if err != nil {
			return nil, translate(err, ref)
		}
		result.CurrentRows = current
		result.SnapshotRows = snapshotRows
		result.Diff = diff

		s.opts.logger.Info("rollback dry run",
			"table", result.Table,
			"snapshot", result.Snapshot,
			"current_rows", current,
			"snapshot_rows", snapshotRows,
			"rows_to_add", diff.RowsToAdd,
			"rows_to_remove", diff.RowsToRemove,
			"rows_to_change", diff.RowsToChange,
			"schema_changed", diff.SchemaChanged)
		return result, nil
	}

	// 3. Staged restore
	err = s.engine.Atomic(ctx, func(tx storage.Tx) error {
		current, err := countIfExists(ctx, tx, snap.SourceTable)
		if err != nil {
			return err
		}
		if err := tx.RestoreTable(ctx, snap.PhysicalTable, snap.SourceTable, snap.SourceDDL); err != nil {
			return err
		}
		restored, err := tx.CountRows(ctx, snap.SourceTable)
		if err != nil {
			return err
		}
		result.CurrentRows = current
		result.SnapshotRows = restored
		return nil
	})
	if err != nil {
		return nil, translate(err, ref)
	}
	result.RestoredAt = s.opts.now().UTC()

	s.opts.logger.Info("table rolled back",
		"table", result.Table,
		"snapshot", result.Snapshot,
		"previous_rows", result.CurrentRows,
		"restored_rows", result.SnapshotRows)
	return result, nil
}

// countIfExists counts rows, treating a missing table as empty.
func countIfExists(ctx context.Context, r storage.Reader, table string) (int64, error) {
	if _, err := r.Describe(ctx, table); err != nil {
		if errors.Is(err, storage.ErrTableNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return r.CountRows(ctx, table)
}

// ============================================================================
// Catalog queries
// ============================================================================

// List returns the snapshots of table, most recent first.
func (s *SnapshotService) List(ctx context.Context, table string) ([]*domain.Snapshot, error) {
	if strings.TrimSpace(table) == "" {
		return nil, domain.ErrInvalidOptions.WithDetails("table is required")
	}
	snaps, err := s.engine.Snapshots(ctx, table)
	if err != nil {
		return nil, translate(err, table)
	}
	return snaps, nil
}

// Get returns one catalog entry.
func (s *SnapshotService) Get(ctx context.Context, table, name string) (*domain.Snapshot, error) {
	snap, err := s.engine.Snapshot(ctx, table, name)
	if err != nil {
		return nil, translate(err, table+"/"+name)
	}
	return snap, nil
}

// ============================================================================
// Delete
// ============================================================================

// Delete drops the snapshot's physical table and its catalog entry together,
// returning (table, name) to absent.
func (s *SnapshotService) Delete(ctx context.Context, table, name string) error {
	err := s.delete(ctx, table, name)
	s.opts.metrics.ObserveSnapshotOperation(opDelete, err)
	return err
}

func (s *SnapshotService) delete(ctx context.Context, table, name string) error {
	ref := table + "/" + name
	var physical string
	err := s.engine.Atomic(ctx, func(tx storage.Tx) error {
		snap, err := tx.Snapshot(ctx, table, name)
		if err != nil {
			return err
		}
		physical = snap.PhysicalTable
		if err := tx.DropTable(ctx, snap.PhysicalTable); err != nil {
			return err
		}
		return tx.DeleteSnapshot(ctx, snap.SourceTable, snap.Name)
	})
	if err != nil {
		return translate(err, ref)
	}

	s.opts.logger.Info("snapshot deleted", "table", table, "snapshot", name, "physical_table", physical)
	return nil
}
