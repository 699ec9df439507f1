package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/core/service"
	"github.com/yndnr/wrought-go/internal/telemetry/logger"
)

// HashCommand returns the hash subcommand group.
func HashCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "Table fingerprints",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Compute and record the fingerprint of a table",
				ArgsUsage: "TABLE",
				Flags: append(fingerprintFlags(),
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show row progress on stderr",
					},
				),
				Action: hashCreate,
			},
			{
				Name:      "verify",
				Usage:     "Recompute a fingerprint and compare it to an expected digest",
				ArgsUsage: "TABLE [EXPECTED]",
				Flags: append(fingerprintFlags(),
					&cli.BoolFlag{
						Name:  "latest",
						Usage: "Verify against the most recently recorded fingerprint and its options",
					},
				),
				Action: hashVerify,
			},
			{
				Name:      "history",
				Usage:     "List recorded fingerprints of a table",
				ArgsUsage: "TABLE",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of records (0 for all)",
						Value:   20,
					},
				},
				Action: hashHistory,
			},
		},
	}
}

func fingerprintFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "algo",
			Aliases: []string{"a"},
			Usage:   "Digest algorithm: sha256, sha512",
		},
		&cli.StringFlag{
			Name:  "salt",
			Usage: "Secret mixed into the digest",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-cols",
			Usage: "Columns left out of the digest (comma-separated)",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Rows serialized per chunk",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Include the table schema in the digest",
		},
	}
}

// fingerprintOptions layers command flags over base.
func fingerprintOptions(c *cli.Context, base domain.FingerprintOptions) (domain.FingerprintOptions, error) {
	opts := base
	if c.IsSet("algo") {
		alg, err := domain.ParseAlgorithm(c.String("algo"))
		if err != nil {
			return opts, err
		}
		opts.Algorithm = alg
	}
	if c.IsSet("salt") {
		opts.Salt = []byte(c.String("salt"))
	}
	if c.IsSet("exclude-cols") {
		opts.ExcludedColumns = splitColumns(c.StringSlice("exclude-cols"))
	}
	if c.IsSet("chunk-size") {
		opts.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("strict") {
		opts.Strict = c.Bool("strict")
	}
	return opts, opts.Validate()
}

func splitColumns(values []string) []string {
	var cols []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
	}
	return cols
}

func hashCreate(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE")
	if err != nil {
		return err
	}
	table := args[0]

	env := getEnv(c)
	ctx := env.Context(c)

	// 1. Resolve options: configuration defaults, then flags
	base, err := env.Config.Fingerprint.Options()
	if err != nil {
		return err
	}
	opts, err := fingerprintOptions(c, base)
	if err != nil {
		return err
	}

	store, err := env.Store()
	if err != nil {
		return err
	}

	// 2. Compute
	var (
		extra []service.Option
		bar   *output.RowProgress
	)
	if c.Bool("progress") {
		// An unknown total is fine; the bar then counts rows.
		total, err := store.CountRows(ctx, table)
		if err != nil {
			logger.L(ctx).Debug("row count unavailable for progress", "table", table, "error", err)
		}
		bar = output.NewRowProgress(env.Stderr, "Hashing "+table, total)
		extra = append(extra, service.WithChunkObserver(bar.Observe))
	}
	svc := service.NewFingerprintService(store, env.ServiceOptions(ctx, extra...)...)
	fp, err := svc.Compute(ctx, table, opts)
	if bar != nil {
		bar.Finish()
	}

	// 3. Record the fingerprint for later verification
	details := ""
	if err == nil {
		details = fmt.Sprintf("%s rows=%d", fp, fp.Rows)
		err = recordFingerprint(c, env, fp, opts)
	}
	if err := env.Audit(ctx, domain.ActionHashCreate, table, details, err); err != nil {
		return err
	}

	return env.Render(fp)
}

func recordFingerprint(c *cli.Context, env *Env, fp *domain.Fingerprint, opts domain.FingerprintOptions) error {
	if !env.Config.Ledger.Enabled {
		return nil
	}
	l, err := env.Ledger()
	if err != nil {
		return err
	}
	rec := domain.NewFingerprintRecord(fp, opts)
	rec.User = env.User
	if err := l.RecordFingerprint(env.Context(c), rec); err != nil {
		return domain.ErrStorage.WithDetails("record fingerprint").WithCause(err)
	}
	return nil
}

func hashVerify(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return usageError(c, "TABLE [EXPECTED]")
	}
	table := c.Args().Get(0)
	expected := c.Args().Get(1)

	env := getEnv(c)
	ctx := env.Context(c)

	// 1. Resolve the expected digest and base options
	base, err := env.Config.Fingerprint.Options()
	if err != nil {
		return err
	}
	// The algorithm comes from --algo or the digest itself, never the
	// configured default.
	base.Algorithm = domain.AlgorithmUnspecified

	switch {
	case c.Bool("latest") && expected != "":
		return domain.ErrInvalidOptions.WithDetails("EXPECTED and --latest are mutually exclusive")
	case c.Bool("latest"):
		rec, err := latestFingerprint(c, env, table)
		if err != nil {
			return err
		}
		expected = rec.Algorithm.String() + ":" + rec.Digest
		base = applyRecord(base, rec)
		if rec.Salted && len(base.Salt) == 0 && !c.IsSet("salt") {
			logger.L(ctx).Warn("recorded fingerprint was salted but no salt is configured", "table", table, "record", rec.ID)
		}
	case expected == "":
		return usageError(c, "TABLE EXPECTED or --latest")
	}

	opts, err := fingerprintOptions(c, base)
	if err != nil {
		return err
	}

	store, err := env.Store()
	if err != nil {
		return err
	}

	// 2. Verify
	svc := service.NewFingerprintService(store, env.ServiceOptions(ctx)...)
	res, err := svc.Verify(ctx, table, expected, opts)
	if err != nil {
		return env.Audit(ctx, domain.ActionHashVerify, table, "", err)
	}

	// 3. Audit and report; a mismatch exits non-zero
	mismatch := res.Err()
	details := "expected " + res.Expected + " computed " + res.Computed.String()
	if err := env.Audit(ctx, domain.ActionHashVerify, table, details, mismatch); err != nil && mismatch == nil {
		return err
	}
	if err := env.Render(res); err != nil {
		return err
	}
	return mismatch
}

// applyRecord adopts the options a recorded fingerprint was computed with.
func applyRecord(opts domain.FingerprintOptions, rec *domain.FingerprintRecord) domain.FingerprintOptions {
	opts.Algorithm = rec.Algorithm
	opts.ExcludedColumns = append([]string(nil), rec.ExcludedColumns...)
	if rec.ChunkSize > 0 {
		opts.ChunkSize = rec.ChunkSize
	}
	opts.Strict = rec.Strict
	return opts
}

func latestFingerprint(c *cli.Context, env *Env, table string) (*domain.FingerprintRecord, error) {
	l, err := env.Ledger()
	if err != nil {
		return nil, err
	}
	rec, err := l.LatestFingerprint(env.Context(c), table)
	if err != nil {
		return nil, ledgerError(err, "no fingerprint recorded for "+table)
	}
	return rec, nil
}

func hashHistory(c *cli.Context) error {
	args, err := requireArgs(c, "TABLE")
	if err != nil {
		return err
	}
	table := args[0]

	env := getEnv(c)
	l, err := env.Ledger()
	if err != nil {
		return err
	}
	recs, err := l.Fingerprints(env.Context(c), table, c.Int("limit"))
	if err != nil {
		return ledgerError(err, "read fingerprints of "+table)
	}

	if len(recs) == 0 && env.Format == output.FormatTable {
		fmt.Fprintf(env.Stdout, "No fingerprints recorded for %s\n", table)
		return nil
	}
	return env.Render(recs)
}
