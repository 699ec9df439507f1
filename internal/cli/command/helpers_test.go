package command

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/yndnr/wrought-go/internal/storage/sqlite"
)

// harness runs the wi application against a throwaway database and ledger.
type harness struct {
	t      *testing.T
	dir    string
	db     string
	ledger string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		t:      t,
		dir:    dir,
		db:     filepath.Join(dir, "wi.db"),
		ledger: filepath.Join(dir, "ledger"),
	}
	h.exec(
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT NOT NULL, total REAL)`,
		`INSERT INTO orders VALUES (1, 'ada', 10.5), (2, 'bob', 20), (3, 'cy', NULL)`,
	)
	return h
}

// exec runs statements directly against the database.
func (h *harness) exec(stmts ...string) {
	h.t.Helper()
	store, err := sqlite.Open(sqlite.Config{Path: h.db}, slog.New(slog.DiscardHandler))
	if err != nil {
		h.t.Fatalf("open database: %v", err)
	}
	defer store.Close()
	for _, stmt := range stmts {
		if _, err := store.DB().Exec(stmt); err != nil {
			h.t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

// result is the captured outcome of one invocation.
type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) code() int {
	return ExitCode(r.err)
}

// run invokes wi with the harness database, ledger and user prepended to
// args.
func (h *harness) run(args ...string) result {
	h.t.Helper()
	full := append([]string{
		"wi",
		"--db", h.db,
		"--ledger-dir", h.ledger,
		"--user", "alice",
		"--log-level", "error",
	}, args...)
	return runApp(h.t, full...)
}

func runApp(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.RunContext(context.Background(), args)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// mustRun fails the test unless the invocation succeeds.
func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	r := h.run(args...)
	if r.err != nil {
		h.t.Fatalf("wi %v: %v\nstderr: %s", args, r.err, r.stderr)
	}
	return r.stdout
}

// decode unmarshals JSON output into v.
func decode(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
}
