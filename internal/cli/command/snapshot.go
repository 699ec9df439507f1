package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/core/service"
)

// SnapshotCommand returns the snapshot subcommand group.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:    "snapshot",
		Aliases: []string{"snap"},
		Usage:   "Table snapshots",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Copy the current contents of a table into a named snapshot",
				ArgsUsage: "TABLE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Snapshot name, unique per table",
					},
					&cli.StringFlag{
						Name:  "comment",
						Usage: "Free-form description",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a spinner on stderr while copying",
					},
				},
				Action: snapshotCreate,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List snapshots of a table, newest first",
				ArgsUsage: "TABLE",
				Action:    snapshotList,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a snapshot and its copy",
				ArgsUsage: "TABLE NAME",
				Action:    snapshotDelete,
			},
		},
	}
}

func snapshotService(c *cli.Context, env *Env) (*service.SnapshotService, error) {
	store, err := env.Store()
	if err != nil {
		return nil, err
	}
	return service.NewSnapshotService(store, env.ServiceOptions(env.Context(c))...), nil
}

// spin runs fn under a spinner when enabled.
func spin(env *Env, enabled bool, message string, fn func() error) error {
	if !enabled {
		return fn()
	}
	s := output.NewSpinner(env.Stderr, message)
	s.Start()
	err := fn()
	if err != nil {
		s.Fail(message)
	} else {
		s.Success(message)
	}
	return err
}

func snapshotCreate(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE")
	if err != nil {
		return err
	}
	table := args[0]

	env := getEnv(c)
	ctx := env.Context(c)
	svc, err := snapshotService(c, env)
	if err != nil {
		return err
	}

	req := &service.CreateSnapshotRequest{
		Table:   table,
		Name:    c.String("name"),
		Comment: c.String("comment"),
	}
	var snap *domain.Snapshot
	err = spin(env, c.Bool("progress"), fmt.Sprintf("Snapshotting %s as %q", table, req.Name), func() error {
		var err error
		snap, err = svc.Create(ctx, req)
		return err
	})

	details := "snapshot " + req.Name
	if err == nil {
		details = fmt.Sprintf("snapshot %s rows=%d physical=%s", snap.Name, snap.RowCount, snap.PhysicalTable)
	}
	if err := env.Audit(ctx, domain.ActionSnapshotCreate, table, details, err); err != nil {
		return err
	}
	return env.Render(snap)
}

func snapshotList(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE")
	if err != nil {
		return err
	}
	table := args[0]

	env := getEnv(c)
	svc, err := snapshotService(c, env)
	if err != nil {
		return err
	}
	snaps, err := svc.List(env.Context(c), table)
	if err != nil {
		return err
	}

	if len(snaps) == 0 && env.Format == output.FormatTable {
		fmt.Fprintf(env.Stdout, "No snapshots of %s\n", table)
		return nil
	}
	return env.Render(snaps)
}

// deleteResult reports a deleted snapshot.
type deleteResult struct {
	Table    string `json:"table" yaml:"table"`
	Snapshot string `json:"snapshot" yaml:"snapshot"`
	Deleted  bool   `json:"deleted" yaml:"deleted"`
}

func snapshotDelete(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE", "NAME")
	if err != nil {
		return err
	}
	table, name := args[0], args[1]

	env := getEnv(c)
	ctx := env.Context(c)
	svc, err := snapshotService(c, env)
	if err != nil {
		return err
	}

	err = svc.Delete(ctx, table, name)
	if err := env.Audit(ctx, domain.ActionSnapshotDelete, table, "snapshot "+name, err); err != nil {
		return err
	}

	if env.Format == output.FormatTable {
		fmt.Fprintf(env.Stdout, "Snapshot %q of %s deleted\n", name, table)
		return nil
	}
	return env.Render(&deleteResult{Table: table, Snapshot: name, Deleted: true})
}
