package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/core/service"
)

// DriftCommand returns the drift subcommand group.
func DriftCommand() *cli.Command {
	return &cli.Command{
		Name:  "drift",
		Usage: "Statistical drift detection",
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Compare numeric columns of a table against a baseline snapshot",
				ArgsUsage: "TABLE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "baseline",
						Aliases: []string{"b"},
						Usage:   "Baseline snapshot name",
					},
					&cli.Float64Flag{
						Name:    "threshold",
						Aliases: []string{"t"},
						Usage:   "Significance level; a column drifts when its p-value is below it",
					},
				},
				Action: driftCheck,
			},
		},
	}
}

func driftCheck(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE")
	if err != nil {
		return err
	}
	table := args[0]

	env := getEnv(c)
	ctx := env.Context(c)

	threshold := env.Config.Drift.Threshold
	if c.IsSet("threshold") {
		threshold = c.Float64("threshold")
	}

	store, err := env.Store()
	if err != nil {
		return err
	}

	// 1. Compare
	svc := service.NewDriftService(store, env.ServiceOptions(ctx)...)
	report, err := svc.Compare(ctx, &service.CompareRequest{
		Table:     table,
		Baseline:  c.String("baseline"),
		Threshold: threshold,
	})
	if err != nil {
		return env.Audit(ctx, domain.ActionDriftCheck, table, "baseline "+c.String("baseline"), err)
	}

	// 2. Audit and report; drift exits non-zero
	drift := report.Err()
	details := fmt.Sprintf("baseline %s threshold %v columns=%d drifted=%d",
		report.Baseline, report.Threshold, len(report.Columns), len(report.DriftedColumns()))
	if err := env.Audit(ctx, domain.ActionDriftCheck, table, details, drift); err != nil && drift == nil {
		return err
	}

	if env.Format == output.FormatTable {
		if err := renderDriftReport(env, report); err != nil {
			return err
		}
	} else if err := env.Render(report); err != nil {
		return err
	}
	return drift
}

func renderDriftReport(env *Env, r *domain.DriftReport) error {
	t := &output.Table{
		Headers: []string{"COLUMN", "TEST", "STATISTIC", "P_VALUE", "VERDICT", "BASELINE_N", "LIVE_N"},
	}
	for _, col := range r.Columns {
		t.AddRow(
			col.Column,
			col.Test,
			optionalFloat(col.Statistic),
			optionalFloat(col.PValue),
			col.Verdict.String(),
			strconv.Itoa(col.BaselineCount),
			strconv.Itoa(col.LiveCount),
		)
	}
	if len(r.Columns) > 0 {
		if err := t.Render(env.Stdout); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(env.Stdout, "No numeric columns in common")
	}

	for _, s := range r.SkippedColumns {
		fmt.Fprintf(env.Stdout, "skipped %s (%s)\n", s.Column, s.Reason)
	}

	verdict := "no drift"
	if r.Drift {
		verdict = fmt.Sprintf("DRIFT in %d column(s)", len(r.DriftedColumns()))
	}
	fmt.Fprintf(env.Stdout, "\n%s vs %s at threshold %v: %s\n", r.Table, r.Baseline, r.Threshold, verdict)
	return nil
}

func optionalFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return output.FormatFloat(*f)
}
