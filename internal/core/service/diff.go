package service

import (
	"context"
	"errors"
	"slices"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
)

// diffChunkSize is the scan chunk size used while diffing.
const diffChunkSize = 5000

type rowDigest [2]uint64

func digestRow(buf []byte, row []any) ([]byte, rowDigest) {
	buf = appendRow(buf[:0], row)
	h1, h2 := murmur3.Sum128(buf)
	return buf, rowDigest{h1, h2}
}

// diffTables describes what restoring snap over its source table would
// change. Rows are compared by murmur3 digests of their canonical encoding
// over the columns both sides share. When both sides declare the same
// primary key rows are matched by key and changes are counted; otherwise
// rows are compared as multisets. A missing live table counts as empty.
//
// The schema counts as changed when the columns differ or, for snapshots
// that recorded it, when the live definition no longer matches the one the
// snapshot was taken from.
func diffTables(ctx context.Context, r storage.Reader, snap *domain.Snapshot) (*domain.RowDiff, int64, int64, error) {
	liveTable, snapshotTable := snap.SourceTable, snap.PhysicalTable
	snapInfo, err := r.Describe(ctx, snapshotTable)
	if err != nil {
		return nil, 0, 0, err
	}

	liveInfo, err := r.Describe(ctx, liveTable)
	if errors.Is(err, storage.ErrTableNotFound) {
		rows, err := r.CountRows(ctx, snapshotTable)
		if err != nil {
			return nil, 0, 0, err
		}
		return &domain.RowDiff{RowsToAdd: rows, SchemaChanged: true}, 0, rows, nil
	}
	if err != nil {
		return nil, 0, 0, err
	}

	diff := &domain.RowDiff{SchemaChanged: liveInfo.ColumnText() != snapInfo.ColumnText()}
	if snap.SourceDDL != "" && storage.Definition(liveInfo.DDL) != storage.Definition(snap.SourceDDL) {
		diff.SchemaChanged = true
	}

	var shared []string
	for _, c := range snapInfo.ColumnNames() {
		if _, ok := liveInfo.Column(c); ok {
			shared = append(shared, c)
		}
	}

	keyed := len(snapInfo.PrimaryKey) > 0 && slices.Equal(snapInfo.PrimaryKey, liveInfo.PrimaryKey)
	var live, snapRows int64
	if keyed {
		diff.KeyColumns = append([]string(nil), snapInfo.PrimaryKey...)
		live, snapRows, err = diffByKey(ctx, r, liveInfo.Name, snapInfo.Name, diff.KeyColumns, shared, diff)
	} else {
		live, snapRows, err = diffMultiset(ctx, r, liveInfo.Name, snapInfo.Name, shared, diff)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return diff, live, snapRows, nil
}

func diffByKey(ctx context.Context, r storage.Reader, liveTable, snapTable string, key, shared []string, diff *domain.RowDiff) (int64, int64, error) {
	cols := append(append([]string(nil), key...), shared...)
	k := len(key)

	var (
		buf       []byte
		d         rowDigest
		snapRows  int64
		liveRows  int64
		wantByKey = make(map[string]rowDigest)
		scanTable = func(table string, fn func(row []any)) error {
			return r.Scan(ctx, storage.ScanRequest{
				Table: table, Columns: cols, OrderBy: key, ChunkSize: diffChunkSize,
			}, func(c *storage.Chunk) error {
				for _, row := range c.Rows {
					fn(row)
				}
				return nil
			})
		}
	)

	// Snapshot side: key -> digest of the full shared row.
	err := scanTable(snapTable, func(row []any) {
		snapRows++
		buf, d = digestRow(buf, row[k:])
		wantByKey[string(appendRow(nil, row[:k]))] = d
	})
	if err != nil {
		return 0, 0, err
	}

	// Live side: match by key.
	err = scanTable(liveTable, func(row []any) {
		liveRows++
		keyText := string(appendRow(nil, row[:k]))
		want, ok := wantByKey[keyText]
		if !ok {
			diff.RowsToRemove++
			return
		}
		delete(wantByKey, keyText)
		buf, d = digestRow(buf, row[k:])
		if d == want {
			diff.Unchanged++
		} else {
			diff.RowsToChange++
		}
	})
	if err != nil {
		return 0, 0, err
	}

	diff.RowsToAdd = int64(len(wantByKey))
	return liveRows, snapRows, nil
}

func diffMultiset(ctx context.Context, r storage.Reader, liveTable, snapTable string, shared []string, diff *domain.RowDiff) (int64, int64, error) {
	var (
		buf      []byte
		d        rowDigest
		snapRows int64
		liveRows int64
		balance  = make(map[rowDigest]int64)
	)

	scan := func(table string, delta int64, n *int64) error {
		return r.Scan(ctx, storage.ScanRequest{
			Table: table, Columns: shared, ChunkSize: diffChunkSize,
		}, func(c *storage.Chunk) error {
			for _, row := range c.Rows {
				*n++
				buf, d = digestRow(buf, row)
				balance[d] += delta
			}
			return nil
		})
	}

	if err := scan(snapTable, 1, &snapRows); err != nil {
		return 0, 0, err
	}
	if err := scan(liveTable, -1, &liveRows); err != nil {
		return 0, 0, err
	}

	for _, n := range balance {
		switch {
		case n > 0:
			diff.RowsToAdd += n
		case n < 0:
			diff.RowsToRemove -= n
		}
	}
	diff.Unchanged = snapRows - diff.RowsToAdd
	return liveRows, snapRows, nil
}
