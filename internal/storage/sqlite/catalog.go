package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
)

// catalogTimeFormat is fixed-width so created_at sorts lexically.
const catalogTimeFormat = "2006-01-02T15:04:05.000000000Z"

type catalogRow struct {
	SourceTable   string `db:"source_table"`
	Name          string `db:"name"`
	PhysicalTable string `db:"physical_table"`
	CreatedAt     string `db:"created_at"`
	Comment       string `db:"comment"`
	RowCount      int64  `db:"row_count"`
	SourceDDL     string `db:"source_ddl"`
}

func (r catalogRow) toDomain() (*domain.Snapshot, error) {
	created, err := time.Parse(catalogTimeFormat, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("catalog entry %s/%s: created_at: %w", r.SourceTable, r.Name, err)
	}
	return &domain.Snapshot{
		Name:          r.Name,
		SourceTable:   r.SourceTable,
		PhysicalTable: r.PhysicalTable,
		CreatedAt:     created,
		Comment:       r.Comment,
		RowCount:      r.RowCount,
		SourceDDL:     r.SourceDDL,
	}, nil
}

const catalogColumns = `source_table, name, physical_table, created_at, comment, row_count, source_ddl`

func (q queries) snapshot(ctx context.Context, table, name string) (*domain.Snapshot, error) {
	var row catalogRow
	err := sqlx.GetContext(ctx, q.ext, &row,
		`SELECT `+catalogColumns+` FROM `+CatalogTable+` WHERE source_table = ? AND name = ?`, table, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrSnapshotNotFound, table, name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup snapshot %s/%s: %w", table, name, err)
	}
	return row.toDomain()
}

func (q queries) snapshots(ctx context.Context, table string) ([]*domain.Snapshot, error) {
	var rows []catalogRow
	if err := sqlx.SelectContext(ctx, q.ext, &rows,
		`SELECT `+catalogColumns+` FROM `+CatalogTable+`
		 WHERE source_table = ?
		 ORDER BY created_at DESC, physical_table DESC`, table); err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", table, err)
	}

	out := make([]*domain.Snapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (q queries) insertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	var n int
	if err := sqlx.GetContext(ctx, q.ext, &n,
		`SELECT COUNT(*) FROM `+CatalogTable+` WHERE source_table = ? AND name = ?`,
		snap.SourceTable, snap.Name); err != nil {
		return fmt.Errorf("check snapshot %s/%s: %w", snap.SourceTable, snap.Name, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s/%s", storage.ErrSnapshotExists, snap.SourceTable, snap.Name)
	}

	if _, err := q.ext.ExecContext(ctx,
		`INSERT INTO `+CatalogTable+` (`+catalogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.SourceTable, snap.Name, snap.PhysicalTable,
		snap.CreatedAt.UTC().Format(catalogTimeFormat), snap.Comment, snap.RowCount, snap.SourceDDL); err != nil {
		return fmt.Errorf("insert snapshot %s/%s: %w", snap.SourceTable, snap.Name, err)
	}
	return nil
}

func (q queries) deleteSnapshot(ctx context.Context, table, name string) error {
	res, err := q.ext.ExecContext(ctx,
		`DELETE FROM `+CatalogTable+` WHERE source_table = ? AND name = ?`, table, name)
	if err != nil {
		return fmt.Errorf("delete snapshot %s/%s: %w", table, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %s/%s: %w", table, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", storage.ErrSnapshotNotFound, table, name)
	}
	return nil
}
