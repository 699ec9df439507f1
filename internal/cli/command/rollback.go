package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/core/service"
)

// RollbackCommand returns the rollback command.
func RollbackCommand() *cli.Command {
	return &cli.Command{
		Name:      "rollback",
		Usage:     "Replace a table with the contents of one of its snapshots",
		ArgsUsage: "TABLE SNAPSHOT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what a rollback would change without modifying the table",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a spinner on stderr while restoring",
			},
		},
		Action: rollback,
	}
}

func rollback(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE", "SNAPSHOT")
	if err != nil {
		return err
	}
	table, snapshot := args[0], args[1]

	env := getEnv(c)
	ctx := env.Context(c)
	svc, err := snapshotService(c, env)
	if err != nil {
		return err
	}

	req := &service.RollbackRequest{
		Table:    table,
		Snapshot: snapshot,
		DryRun:   c.Bool("dry-run"),
	}
	action, message := domain.ActionRollback, fmt.Sprintf("Rolling %s back to %q", table, snapshot)
	if req.DryRun {
		action, message = domain.ActionRollbackDryRun, fmt.Sprintf("Comparing %s with %q", table, snapshot)
	}

	var res *domain.RollbackResult
	err = spin(env, c.Bool("progress"), message, func() error {
		var err error
		res, err = svc.Rollback(ctx, req)
		return err
	})

	details := "snapshot " + snapshot
	if err == nil {
		details = rollbackDetails(res)
	}
	if err := env.Audit(ctx, action, table, details, err); err != nil {
		return err
	}

	if env.Format == output.FormatTable {
		return rollbackTable(res).Render(env.Stdout)
	}
	return env.Render(res)
}

func rollbackDetails(res *domain.RollbackResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "snapshot %s rows %d -> %d", res.Snapshot, res.CurrentRows, res.SnapshotRows)
	if d := res.Diff; d != nil {
		fmt.Fprintf(&b, " add=%d remove=%d change=%d schema_changed=%t",
			d.RowsToAdd, d.RowsToRemove, d.RowsToChange, d.SchemaChanged)
	}
	return b.String()
}

func rollbackTable(res *domain.RollbackResult) *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("TABLE", res.Table)
	t.AddRow("SNAPSHOT", res.Snapshot)
	t.AddRow("DRY_RUN", strconv.FormatBool(res.DryRun))
	t.AddRow("CURRENT_ROWS", output.FormatCount(res.CurrentRows))
	t.AddRow("SNAPSHOT_ROWS", output.FormatCount(res.SnapshotRows))
	t.AddRow("ROW_DELTA", signed(res.RowDelta()))

	if d := res.Diff; d != nil {
		key := "(whole row)"
		if len(d.KeyColumns) > 0 {
			key = strings.Join(d.KeyColumns, ",")
		}
		t.AddRow("COMPARED_BY", key)
		t.AddRow("ROWS_TO_ADD", output.FormatCount(d.RowsToAdd))
		t.AddRow("ROWS_TO_REMOVE", output.FormatCount(d.RowsToRemove))
		t.AddRow("ROWS_TO_CHANGE", output.FormatCount(d.RowsToChange))
		t.AddRow("UNCHANGED", output.FormatCount(d.Unchanged))
		t.AddRow("SCHEMA_CHANGED", strconv.FormatBool(d.SchemaChanged))
	}
	if !res.RestoredAt.IsZero() {
		t.AddRow("RESTORED_AT", output.FormatAge(res.RestoredAt))
	}
	return t
}

func signed(n int64) string {
	if n > 0 {
		return "+" + output.FormatCount(n)
	}
	return output.FormatCount(n)
}
