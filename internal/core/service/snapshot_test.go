package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
	"github.com/yndnr/wrought-go/internal/storage/sqlite"
)

var errInjected = errors.New("injected failure")

// faultyEngine fails the named step inside Atomic after it has run.
type faultyEngine struct {
	*sqlite.Store
	failOn string
}

func (e faultyEngine) Atomic(ctx context.Context, fn func(storage.Tx) error) error {
	return e.Store.Atomic(ctx, func(tx storage.Tx) error {
		return fn(faultyTx{Tx: tx, failOn: e.failOn})
	})
}

type faultyTx struct {
	storage.Tx
	failOn string
}

func (t faultyTx) InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if err := t.Tx.InsertSnapshot(ctx, snap); err != nil {
		return err
	}
	if t.failOn == "insert" {
		return errInjected
	}
	return nil
}

func (t faultyTx) RestoreTable(ctx context.Context, src, target, definition string) error {
	if err := t.Tx.RestoreTable(ctx, src, target, definition); err != nil {
		return err
	}
	if t.failOn == "restore" {
		return errInjected
	}
	return nil
}

func (t faultyTx) DeleteSnapshot(ctx context.Context, table, name string) error {
	if t.failOn == "delete" {
		return errInjected
	}
	return t.Tx.DeleteSnapshot(ctx, table, name)
}

func physicalTables(t *testing.T, s *sqlite.Store) int {
	t.Helper()
	var n int
	err := s.DB().Get(&n, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name LIKE '\_wi\_snap\_%' ESCAPE '\'`)
	if err != nil {
		t.Fatalf("count physical tables: %v", err)
	}
	return n
}

func steppingClock() func() time.Time {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestSnapshotService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("copies and catalogues", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())

		snap, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre", Comment: "before migration"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if snap.SourceTable != "orders" || snap.Name != "pre" || snap.RowCount != 3 || snap.Comment != "before migration" {
			t.Errorf("Create() = %+v", snap)
		}
		if !strings.HasPrefix(snap.PhysicalTable, PhysicalPrefix) {
			t.Errorf("PhysicalTable = %q, want prefix %q", snap.PhysicalTable, PhysicalPrefix)
		}

		got, err := svc.Get(ctx, "orders", "pre")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.PhysicalTable != snap.PhysicalTable || !got.CreatedAt.Equal(snap.CreatedAt) {
			t.Errorf("Get() = %+v, want %+v", got, snap)
		}

		fps := NewFingerprintService(s, quiet())
		opts := domain.DefaultFingerprintOptions()
		if digest(t, fps, "orders", opts) != digest(t, fps, snap.PhysicalTable, opts) {
			t.Error("snapshot contents should fingerprint like the source")
		}
	})

	t.Run("collision leaves data untouched", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())

		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `INSERT INTO orders VALUES (4, 'dave', 1.0, '2024-01-04')`)

		_, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"})
		if !domain.IsAlreadyExists(err) {
			t.Fatalf("second Create() error = %v, want already_exists", err)
		}
		snap, err := svc.Get(ctx, "orders", "pre")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if snap.RowCount != 3 {
			t.Errorf("RowCount = %d, want 3", snap.RowCount)
		}
		if n := physicalTables(t, s); n != 1 {
			t.Errorf("physical tables = %d, want 1", n)
		}
	})

	t.Run("same name on another table", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		exec(t, s, `CREATE TABLE items (sku TEXT PRIMARY KEY)`)
		svc := NewSnapshotService(s, quiet())

		for _, table := range []string{"orders", "items"} {
			if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: table, Name: "pre"}); err != nil {
				t.Fatalf("Create(%s) error = %v", table, err)
			}
		}
	})

	t.Run("all or nothing", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(faultyEngine{Store: s, failOn: "insert"}, quiet())

		_, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"})
		if !domain.IsStorage(err) || !errors.Is(err, errInjected) {
			t.Fatalf("Create() error = %v, want storage error wrapping the injected failure", err)
		}
		if n := physicalTables(t, s); n != 0 {
			t.Errorf("physical tables after failed create = %d, want 0", n)
		}
		snaps, err := NewSnapshotService(s, quiet()).List(ctx, "orders")
		if err != nil || len(snaps) != 0 {
			t.Errorf("List() = %v, %v; want empty", snaps, err)
		}
	})

	invalid := []struct {
		name string
		req  CreateSnapshotRequest
	}{
		{"no table", CreateSnapshotRequest{Name: "pre"}},
		{"no name", CreateSnapshotRequest{Table: "orders"}},
		{"control character", CreateSnapshotRequest{Table: "orders", Name: "a\tb"}},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.name, func(t *testing.T) {
			svc := NewSnapshotService(openStore(t), quiet())
			if _, err := svc.Create(ctx, &tt.req); !domain.IsInvalidOptions(err) {
				t.Errorf("Create() error = %v, want invalid_options", err)
			}
		})
	}

	t.Run("missing table", func(t *testing.T) {
		svc := NewSnapshotService(openStore(t), quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "missing", Name: "pre"}); !domain.IsNotFound(err) {
			t.Errorf("Create() error = %v, want not_found", err)
		}
	})
}

func TestSnapshotService_Rollback(t *testing.T) {
	ctx := context.Background()
	opts := domain.DefaultFingerprintOptions()

	t.Run("restores exact contents", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		exec(t, s, `CREATE INDEX orders_customer ON orders (customer)`)
		svc := NewSnapshotService(s, quiet())
		fps := NewFingerprintService(s, quiet())

		before := digest(t, fps, "orders", opts)
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s,
			`DELETE FROM orders WHERE id = 3`,
			`UPDATE orders SET total = 99 WHERE id = 1`,
			`INSERT INTO orders VALUES (4, 'dave', 1.0, '2024-01-04'), (5, 'erin', 2.0, '2024-01-05')`,
		)

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre"})
		if err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		if res.CurrentRows != 4 || res.SnapshotRows != 3 || res.RowDelta() != -1 || res.RestoredAt.IsZero() {
			t.Errorf("Rollback() = %+v", res)
		}
		if got := digest(t, fps, "orders", opts); got != before {
			t.Errorf("digest after rollback = %s, want %s", got, before)
		}

		var indexes int
		if err := s.DB().Get(&indexes, `SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = 'orders_customer'`); err != nil {
			t.Fatal(err)
		}
		if indexes != 1 {
			t.Error("rollback should recreate indexes on the restored table")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())
		fps := NewFingerprintService(s, quiet())

		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		var digests []string
		for i := 0; i < 2; i++ {
			if _, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre"}); err != nil {
				t.Fatalf("Rollback() #%d error = %v", i+1, err)
			}
			digests = append(digests, digest(t, fps, "orders", opts))
		}
		if digests[0] != digests[1] {
			t.Error("rolling back twice should leave the same contents")
		}
		if _, err := svc.Get(ctx, "orders", "pre"); err != nil {
			t.Errorf("snapshot should survive rollback: %v", err)
		}
	})

	t.Run("recreates a dropped table", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())

		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `DROP TABLE orders`)

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre"})
		if err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		if res.CurrentRows != 0 || res.SnapshotRows != 3 {
			t.Errorf("Rollback() = %+v", res)
		}
	})

	t.Run("restores the recorded definition", func(t *testing.T) {
		s := openStore(t)
		exec(t, s,
			`CREATE TABLE items (id INTEGER PRIMARY KEY, sku TEXT COLLATE NOCASE UNIQUE, qty INTEGER CHECK (qty >= 0))`,
			`INSERT INTO items VALUES (1, 'a', 1), (2, 'b', 2)`,
		)
		svc := NewSnapshotService(s, quiet())
		fps := NewFingerprintService(s, quiet())
		strict := opts
		strict.Strict = true
		before := digest(t, fps, "items", strict)

		snap, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "items", Name: "pre"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !strings.Contains(snap.SourceDDL, "CHECK (qty >= 0)") {
			t.Errorf("SourceDDL = %q, want the source definition", snap.SourceDDL)
		}
		exec(t, s, `DELETE FROM items WHERE id = 2`)

		if _, err := svc.Rollback(ctx, &RollbackRequest{Table: "items", Snapshot: "pre"}); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		if got := digest(t, fps, "items", strict); got != before {
			t.Errorf("strict digest after rollback = %s, want %s", got, before)
		}
		if _, err := s.DB().Exec(`INSERT INTO items VALUES (3, 'x', -1)`); err == nil {
			t.Error("CHECK constraint should survive rollback")
		}
		if _, err := s.DB().Exec(`INSERT INTO items VALUES (3, 'A', 1)`); err == nil {
			t.Error("UNIQUE COLLATE NOCASE constraint should survive rollback")
		}
	})

	t.Run("keeps rows of child tables", func(t *testing.T) {
		s := openStore(t)
		exec(t, s,
			`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)`,
			`CREATE TABLE invoices (id INTEGER PRIMARY KEY, customer INTEGER REFERENCES customers(id) ON DELETE CASCADE)`,
			`INSERT INTO customers VALUES (1, 'ann'), (2, 'bob')`,
			`INSERT INTO invoices VALUES (10, 1), (11, 1), (12, 2)`,
		)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "customers", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `UPDATE customers SET name = 'ANN' WHERE id = 1`)

		if _, err := svc.Rollback(ctx, &RollbackRequest{Table: "customers", Snapshot: "pre"}); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		var n int
		if err := s.DB().Get(&n, `SELECT count(*) FROM invoices`); err != nil || n != 3 {
			t.Errorf("invoices after rolling back customers = %d, %v; want 3", n, err)
		}
	})

	t.Run("snapshot unaffected by cascades", func(t *testing.T) {
		s := openStore(t)
		exec(t, s,
			`CREATE TABLE customers (id INTEGER PRIMARY KEY)`,
			`CREATE TABLE invoices (id INTEGER PRIMARY KEY, customer INTEGER REFERENCES customers(id) ON DELETE CASCADE)`,
			`INSERT INTO customers VALUES (1), (2)`,
			`INSERT INTO invoices VALUES (10, 1), (11, 1), (12, 2)`,
		)
		svc := NewSnapshotService(s, quiet())
		snap, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "invoices", Name: "pre"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// Another client with enforcement on deletes a parent row.
		conn, err := s.DB().Connx(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, stmt := range []string{"PRAGMA foreign_keys = ON", "DELETE FROM customers WHERE id = 1", "PRAGMA foreign_keys = OFF"} {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				t.Fatalf("exec %q: %v", stmt, err)
			}
		}
		conn.Close()

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "invoices", Snapshot: "pre"})
		if err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		if res.CurrentRows != 1 || res.SnapshotRows != snap.RowCount {
			t.Errorf("Rollback() = %+v, want 1 -> %d rows", res, snap.RowCount)
		}
	})

	t.Run("keeps dependent views", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		exec(t, s, `CREATE VIEW big_orders AS SELECT id FROM orders WHERE total > 15`)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `DELETE FROM orders`)

		if _, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre"}); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		var ids []int
		if err := s.DB().Select(&ids, `SELECT id FROM big_orders`); err != nil || len(ids) != 1 || ids[0] != 2 {
			t.Errorf("view after rollback = %v, %v; want [2]", ids, err)
		}
	})

	t.Run("failed restore leaves table untouched", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		if _, err := NewSnapshotService(s, quiet()).Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `INSERT INTO orders VALUES (4, 'dave', 1.0, '2024-01-04')`)
		fps := NewFingerprintService(s, quiet())
		modified := digest(t, fps, "orders", opts)

		svc := NewSnapshotService(faultyEngine{Store: s, failOn: "restore"}, quiet())
		if _, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre"}); !errors.Is(err, errInjected) {
			t.Fatalf("Rollback() error = %v, want injected failure", err)
		}
		if got := digest(t, fps, "orders", opts); got != modified {
			t.Error("a failed rollback must not change the live table")
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())

		_, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "nope"})
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			t.Errorf("Rollback() error = %v, want snapshot not found", err)
		}
		_, err = svc.Rollback(ctx, &RollbackRequest{Table: "orders"})
		if !domain.IsInvalidOptions(err) {
			t.Errorf("Rollback() without snapshot error = %v, want invalid_options", err)
		}
	})
}

func TestSnapshotService_RollbackDryRun(t *testing.T) {
	ctx := context.Background()

	t.Run("keyed diff", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())
		fps := NewFingerprintService(s, quiet())

		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s,
			`DELETE FROM orders WHERE id = 3`,
			`UPDATE orders SET total = 11 WHERE id = 1`,
			`INSERT INTO orders VALUES (4, 'dave', 1.0, '2024-01-04')`,
		)
		live := digest(t, fps, "orders", domain.DefaultFingerprintOptions())

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre", DryRun: true})
		if err != nil {
			t.Fatalf("Rollback(dry run) error = %v", err)
		}
		want := domain.RowDiff{KeyColumns: []string{"id"}, RowsToAdd: 1, RowsToRemove: 1, RowsToChange: 1, Unchanged: 1}
		d := res.Diff
		if d == nil || d.RowsToAdd != want.RowsToAdd || d.RowsToRemove != want.RowsToRemove ||
			d.RowsToChange != want.RowsToChange || d.Unchanged != want.Unchanged ||
			d.SchemaChanged || strings.Join(d.KeyColumns, ",") != "id" {
			t.Errorf("Diff = %+v, want %+v", d, want)
		}
		if !res.DryRun || res.CurrentRows != 3 || res.SnapshotRows != 3 || !res.RestoredAt.IsZero() {
			t.Errorf("Rollback(dry run) = %+v", res)
		}
		if digest(t, fps, "orders", domain.DefaultFingerprintOptions()) != live {
			t.Error("dry run must not mutate the live table")
		}
	})

	t.Run("multiset diff", func(t *testing.T) {
		s := openStore(t)
		exec(t, s,
			`CREATE TABLE tags (v TEXT)`,
			`INSERT INTO tags VALUES ('a'), ('a'), ('b')`,
		)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "tags", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s,
			`DELETE FROM tags WHERE rowid = (SELECT min(rowid) FROM tags WHERE v = 'a')`,
			`INSERT INTO tags VALUES ('c')`,
		)

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "tags", Snapshot: "pre", DryRun: true})
		if err != nil {
			t.Fatalf("Rollback(dry run) error = %v", err)
		}
		d := res.Diff
		if d.RowsToAdd != 1 || d.RowsToRemove != 1 || d.RowsToChange != 0 || d.Unchanged != 2 || len(d.KeyColumns) != 0 {
			t.Errorf("Diff = %+v", d)
		}
	})

	t.Run("no changes", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre", DryRun: true})
		if err != nil {
			t.Fatalf("Rollback(dry run) error = %v", err)
		}
		if !res.Diff.Empty() || res.Diff.Unchanged != 3 {
			t.Errorf("Diff = %+v, want empty", res.Diff)
		}
	})

	t.Run("schema change", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `ALTER TABLE orders ADD COLUMN note TEXT`)

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre", DryRun: true})
		if err != nil {
			t.Fatalf("Rollback(dry run) error = %v", err)
		}
		if !res.Diff.SchemaChanged || res.Diff.Unchanged != 3 {
			t.Errorf("Diff = %+v, want schema change with rows unchanged", res.Diff)
		}
	})

	t.Run("constraint change", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s,
			`CREATE TABLE orders_new (id INTEGER PRIMARY KEY, customer TEXT NOT NULL, total REAL, updated_at TEXT, UNIQUE (customer))`,
			`INSERT INTO orders_new SELECT * FROM orders`,
			`DROP TABLE orders`,
			`ALTER TABLE orders_new RENAME TO orders`,
		)

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre", DryRun: true})
		if err != nil {
			t.Fatalf("Rollback(dry run) error = %v", err)
		}
		if !res.Diff.SchemaChanged || res.Diff.Unchanged != 3 {
			t.Errorf("Diff = %+v, want schema change with rows unchanged", res.Diff)
		}
	})

	t.Run("dropped table", func(t *testing.T) {
		s := openStore(t)
		seedOrders(t, s)
		svc := NewSnapshotService(s, quiet())
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "pre"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		exec(t, s, `DROP TABLE orders`)

		res, err := svc.Rollback(ctx, &RollbackRequest{Table: "orders", Snapshot: "pre", DryRun: true})
		if err != nil {
			t.Fatalf("Rollback(dry run) error = %v", err)
		}
		if res.Diff.RowsToAdd != 3 || !res.Diff.SchemaChanged || res.CurrentRows != 0 {
			t.Errorf("Rollback(dry run) = %+v, diff %+v", res, res.Diff)
		}
	})
}

func TestSnapshotService_ListAndDelete(t *testing.T) {
	ctx := context.Background()

	s := openStore(t)
	seedOrders(t, s)
	svc := NewSnapshotService(s, quiet(), WithClock(steppingClock()))

	for _, name := range []string{"first", "second", "third"} {
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: name}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	snaps, err := svc.List(ctx, "orders")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, snap := range snaps {
		names = append(names, snap.Name)
	}
	if got := strings.Join(names, ","); got != "third,second,first" {
		t.Errorf("List() order = %s, want third,second,first", got)
	}

	if snaps, _ := svc.List(ctx, "items"); len(snaps) != 0 {
		t.Errorf("List(items) = %v, want empty", snaps)
	}

	t.Run("delete failure keeps both halves", func(t *testing.T) {
		faulty := NewSnapshotService(faultyEngine{Store: s, failOn: "delete"}, quiet())
		if err := faulty.Delete(ctx, "orders", "second"); !errors.Is(err, errInjected) {
			t.Fatalf("Delete() error = %v, want injected failure", err)
		}
		snap, err := svc.Get(ctx, "orders", "second")
		if err != nil {
			t.Fatalf("Get() after failed delete error = %v", err)
		}
		if _, err := s.Describe(ctx, snap.PhysicalTable); err != nil {
			t.Errorf("physical table should survive a failed delete: %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		snap, err := svc.Get(ctx, "orders", "second")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if err := svc.Delete(ctx, "orders", "second"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := svc.Get(ctx, "orders", "second"); !errors.Is(err, domain.ErrSnapshotNotFound) {
			t.Errorf("Get() after delete error = %v, want snapshot not found", err)
		}
		if _, err := s.Describe(ctx, snap.PhysicalTable); !errors.Is(err, storage.ErrTableNotFound) {
			t.Errorf("physical table after delete: %v, want table not found", err)
		}
		if err := svc.Delete(ctx, "orders", "second"); !domain.IsNotFound(err) {
			t.Errorf("second Delete() error = %v, want not_found", err)
		}
		if _, err := svc.Create(ctx, &CreateSnapshotRequest{Table: "orders", Name: "second"}); err != nil {
			t.Errorf("name should be reusable after delete: %v", err)
		}
	})
}
