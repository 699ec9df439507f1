package command

import (
	"strings"
	"testing"

	"github.com/yndnr/wrought-go/internal/core/domain"
)

func TestSnapshotLifecycle(t *testing.T) {
	h := newHarness(t)

	// 1. Create
	var snap domain.Snapshot
	decode(t, h.mustRun("-o", "json", "snapshot", "create", "--name", "pre", "--comment", "before cleanup", "orders"), &snap)
	if snap.Name != "pre" || snap.SourceTable != "orders" || snap.RowCount != 3 || snap.Comment != "before cleanup" {
		t.Errorf("snapshot = %+v", snap)
	}

	// 2. Duplicate name
	if r := h.run("snapshot", "create", "--name", "pre", "orders"); r.code() != ExitAlreadyExists {
		t.Errorf("duplicate exit code = %d (%v), want %d", r.code(), r.err, ExitAlreadyExists)
	}

	// 3. List
	h.mustRun("snapshot", "create", "--name", "post", "orders")
	var snaps []domain.Snapshot
	decode(t, h.mustRun("-o", "json", "snapshot", "list", "orders"), &snaps)
	if len(snaps) != 2 || snaps[0].Name != "post" || snaps[1].Name != "pre" {
		t.Errorf("list = %+v, want post then pre", snaps)
	}
	if out := h.mustRun("snapshot", "ls", "orders"); !strings.Contains(out, "pre") || !strings.Contains(out, "SOURCE_TABLE") {
		t.Errorf("table list output:\n%s", out)
	}

	// 4. Delete
	if out := h.mustRun("snapshot", "delete", "orders", "post"); !strings.Contains(out, `"post"`) {
		t.Errorf("delete output = %q", out)
	}
	if r := h.run("snapshot", "delete", "orders", "post"); r.code() != ExitNotFound {
		t.Errorf("second delete exit code = %d (%v), want %d", r.code(), r.err, ExitNotFound)
	}
	decode(t, h.mustRun("-o", "json", "snapshot", "list", "orders"), &snaps)
	if len(snaps) != 1 || snaps[0].Name != "pre" {
		t.Errorf("list after delete = %+v", snaps)
	}
}

func TestSnapshotCreate_Usage(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no name", []string{"snapshot", "create", "orders"}, ExitInvalidOptions},
		{"missing table", []string{"snapshot", "create", "--name", "x", "nope"}, ExitNotFound},
		{"delete needs name", []string{"snapshot", "delete", "orders"}, ExitInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := h.run(tt.args...); r.code() != tt.want {
				t.Errorf("exit code = %d (%v), want %d", r.code(), r.err, tt.want)
			}
		})
	}

	if out := h.mustRun("snapshot", "list", "orders"); !strings.Contains(out, "No snapshots") {
		t.Errorf("empty list output = %q", out)
	}
}

func TestSnapshotCreate_Progress(t *testing.T) {
	h := newHarness(t)

	r := h.run("snapshot", "create", "--name", "pre", "--progress", "orders")
	if r.err != nil {
		t.Fatalf("snapshot create --progress: %v", r.err)
	}
	if !strings.Contains(r.stderr, "✓ Snapshotting orders") {
		t.Errorf("spinner output = %q", r.stderr)
	}

	r = h.run("snapshot", "create", "--name", "pre", "--progress", "orders")
	if !strings.Contains(r.stderr, "✗ Snapshotting orders") {
		t.Errorf("spinner failure output = %q", r.stderr)
	}
}

func TestRollback(t *testing.T) {
	h := newHarness(t)

	var before domain.Fingerprint
	decode(t, h.mustRun("-o", "json", "hash", "create", "orders"), &before)
	h.mustRun("snapshot", "create", "--name", "pre", "orders")

	h.exec(
		`UPDATE orders SET total = 0 WHERE id = 1`,
		`DELETE FROM orders WHERE id = 2`,
		`INSERT INTO orders VALUES (4, 'dee', 4), (5, 'eve', 5)`,
	)

	// 1. Dry run reports the diff and changes nothing
	var dry domain.RollbackResult
	decode(t, h.mustRun("-o", "json", "rollback", "--dry-run", "orders", "pre"), &dry)
	if !dry.DryRun || dry.CurrentRows != 4 || dry.SnapshotRows != 3 || dry.RowDelta() != -1 {
		t.Errorf("dry run = %+v", dry)
	}
	if d := dry.Diff; d == nil || d.RowsToAdd != 1 || d.RowsToRemove != 2 || d.RowsToChange != 1 || d.Unchanged != 1 {
		t.Errorf("dry run diff = %+v", dry.Diff)
	}
	if r := h.run("hash", "verify", "orders", before.Digest); r.code() != ExitMismatch {
		t.Fatalf("dry run modified the table: %v", r.err)
	}

	out := h.mustRun("rollback", "--dry-run", "orders", "pre")
	for _, want := range []string{"ROWS_TO_REMOVE", "COMPARED_BY", "id", "-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("dry run table missing %q:\n%s", want, out)
		}
	}

	// 2. Real rollback restores the snapshot contents
	var res domain.RollbackResult
	decode(t, h.mustRun("-o", "json", "rollback", "orders", "pre"), &res)
	if res.DryRun || res.RestoredAt.IsZero() {
		t.Errorf("rollback = %+v", res)
	}
	h.mustRun("hash", "verify", "orders", before.Digest)

	// 3. Audit trail distinguishes dry runs
	var entries []domain.AuditEntry
	decode(t, h.mustRun("-o", "json", "log", "view", "--table", "orders"), &entries)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	want := "hash.verify,rollback,rollback.dry_run,hash.verify,rollback.dry_run,snapshot.create,hash.create"
	if got := strings.Join(actions, ","); got != want {
		t.Errorf("audit actions = %s, want %s", got, want)
	}
}

func TestRollback_Errors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown snapshot", []string{"rollback", "orders", "nope"}, ExitNotFound},
		{"missing snapshot argument", []string{"rollback", "orders"}, ExitInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := h.run(tt.args...); r.code() != tt.want {
				t.Errorf("exit code = %d (%v), want %d", r.code(), r.err, tt.want)
			}
		})
	}
}
