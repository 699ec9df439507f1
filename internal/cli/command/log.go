package command

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage/archive"
	"github.com/yndnr/wrought-go/internal/storage/ledger"
)

// LogCommand returns the audit log subcommand group.
func LogCommand() *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Audit log",
		Subcommands: []*cli.Command{
			{
				Name:  "view",
				Usage: "Show audit entries, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of entries (0 for all)",
						Value:   50,
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only entries recorded by this user",
					},
					&cli.StringFlag{
						Name:  "action",
						Usage: "Only entries for this action (e.g. hash.verify, rollback)",
					},
					&cli.StringFlag{
						Name:  "table",
						Usage: "Only entries for this table",
					},
				},
				Action: logView,
			},
			{
				Name:   "stats",
				Usage:  "Show ledger record counts and size",
				Action: logStats,
			},
			{
				Name:   "gc",
				Usage:  "Reclaim ledger value log space",
				Action: logGC,
			},
			{
				Name:   "backup",
				Usage:  "Write a checksummed ledger backup archive",
				Flags:  []cli.Flag{archiveDirFlag()},
				Action: logBackup,
			},
			{
				Name:   "backups",
				Usage:  "List and verify ledger backup archives",
				Flags:  []cli.Flag{archiveDirFlag()},
				Action: logBackups,
			},
			{
				Name:      "restore",
				Usage:     "Merge a ledger backup archive into the ledger",
				ArgsUsage: "ARCHIVE",
				Flags:     []cli.Flag{archiveDirFlag()},
				Action:    logRestore,
			},
		},
	}
}

func logView(c *cli.Context) error {
	if c.NArg() > 0 {
		return usageError(c, "")
	}
	env := getEnv(c)
	l, err := env.Ledger()
	if err != nil {
		return err
	}

	entries, err := l.Entries(env.Context(c), ledger.AuditFilter{
		Limit:  c.Int("limit"),
		User:   c.String("user"),
		Action: c.String("action"),
		Table:  c.String("table"),
	})
	if err != nil {
		return ledgerError(err, "read audit log")
	}

	if len(entries) == 0 && env.Format == output.FormatTable {
		fmt.Fprintln(env.Stdout, "No matching audit entries")
		return nil
	}
	return env.Render(entries)
}

func logStats(c *cli.Context) error {
	env := getEnv(c)
	l, err := env.Ledger()
	if err != nil {
		return err
	}
	stats, err := l.Stats(env.Context(c))
	if err != nil {
		return ledgerError(err, "ledger stats")
	}

	if env.Format != output.FormatTable {
		return env.Render(stats)
	}
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("AUDIT_ENTRIES", humanize.Comma(int64(stats.AuditEntries)))
	t.AddRow("FINGERPRINTS", humanize.Comma(int64(stats.Fingerprints)))
	t.AddRow("LSM_SIZE", humanize.IBytes(uint64(stats.LSMSize)))
	t.AddRow("VALUE_LOG_SIZE", humanize.IBytes(uint64(stats.ValueLogSize)))
	t.AddRow("TOTAL_SIZE", humanize.IBytes(uint64(stats.TotalSize())))
	return t.Render(env.Stdout)
}

func logGC(c *cli.Context) error {
	env := getEnv(c)
	l, err := env.Ledger()
	if err != nil {
		return err
	}
	rewritten, err := l.GC(env.Context(c))
	if err != nil {
		return ledgerError(err, "ledger gc")
	}
	fmt.Fprintf(env.Stdout, "Ledger GC rewrote %d value log file(s)\n", rewritten)
	return nil
}

// ============================================================================
// Backup archives
// ============================================================================

func archiveDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Archive directory (default: ledger.backup_dir)",
	}
}

// archiveError maps an archive failure into the domain taxonomy.
func archiveError(err error, details string) error {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return domain.ErrArchiveNotFound.WithDetails(details)
	case errors.Is(err, archive.ErrChecksumMismatch), errors.Is(err, archive.ErrInvalidMagic):
		return domain.ErrArchiveCorrupt.WithDetails(details).WithCause(err)
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorage.WithDetails(details).WithCause(err)
}

func logBackup(c *cli.Context) error {
	if c.NArg() > 0 {
		return usageError(c, "")
	}
	env := getEnv(c)
	ctx := env.Context(c)

	// 1. Open ledger and archive directory
	l, err := env.Ledger()
	if err != nil {
		return err
	}
	m, err := env.Archives(c.String("dir"))
	if err != nil {
		return err
	}
	stats, err := l.Stats(ctx)
	if err != nil {
		return ledgerError(err, "ledger stats")
	}
	source, _ := env.Config.Ledger.ResolvedDir()

	// 2. Write archive
	info, err := m.Create(archive.Header{
		Source:       source,
		AuditEntries: stats.AuditEntries,
		Fingerprints: stats.Fingerprints,
	}, func(w io.Writer) error {
		return l.Backup(ctx, w)
	})
	if err != nil {
		err = archiveError(err, "write backup archive")
		return env.Audit(ctx, domain.ActionLedgerBackup, "", "", err)
	}

	// 3. Apply retention
	removed, err := m.Prune()
	if err != nil {
		env.Logger.Warn("backup retention not applied", "dir", m.Dir(), "error", err)
	}
	for _, id := range removed {
		env.Logger.Info("backup archive pruned", "archive", id)
	}

	details := fmt.Sprintf("archive=%s entries=%d fingerprints=%d", info.ID, info.AuditEntries, info.Fingerprints)
	if err := env.Audit(ctx, domain.ActionLedgerBackup, "", details, nil); err != nil {
		return err
	}

	if env.Format != output.FormatTable {
		return env.Render(info)
	}
	fmt.Fprintf(env.Stdout, "✓ Ledger backed up to %s (%d audit entries, %d fingerprints, %s)\n",
		info.Path, info.AuditEntries, info.Fingerprints, humanize.IBytes(uint64(info.Size)))
	return nil
}

// archiveStatus is one row of "log backups".
type archiveStatus struct {
	ID           string    `json:"id" yaml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	AuditEntries uint64    `json:"audit_entries" yaml:"audit_entries"`
	Fingerprints uint64    `json:"fingerprints" yaml:"fingerprints"`
	Size         string    `json:"size" yaml:"size"`
	Valid        bool      `json:"valid" yaml:"valid"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty" table:"wide"`
	Path         string    `json:"path" yaml:"path" table:"wide"`
}

func logBackups(c *cli.Context) error {
	if c.NArg() > 0 {
		return usageError(c, "")
	}
	env := getEnv(c)
	m, err := env.Archives(c.String("dir"))
	if err != nil {
		return err
	}
	infos, err := m.List()
	if err != nil {
		return archiveError(err, "list backup archives")
	}

	rows := make([]archiveStatus, 0, len(infos))
	for i := len(infos) - 1; i >= 0; i-- {
		row := archiveStatus{
			ID:   infos[i].ID,
			Size: humanize.IBytes(uint64(infos[i].Size)),
			Path: infos[i].Path,
		}
		verified, err := m.Verify(infos[i].Path)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Valid = true
			row.CreatedAt = verified.CreatedAt
			row.AuditEntries = verified.AuditEntries
			row.Fingerprints = verified.Fingerprints
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 && env.Format == output.FormatTable {
		fmt.Fprintf(env.Stdout, "No backup archives in %s\n", m.Dir())
		return nil
	}
	return env.Render(rows)
}

func logRestore(c *cli.Context) error {
	args, err := requireArgs(c, "ARCHIVE")
	if err != nil {
		return err
	}
	env := getEnv(c)
	ctx := env.Context(c)

	l, err := env.Ledger()
	if err != nil {
		return err
	}
	m, err := env.Archives(c.String("dir"))
	if err != nil {
		return err
	}

	path, err := m.Resolve(args[0])
	if err != nil {
		err = archiveError(err, args[0])
		return env.Audit(ctx, domain.ActionLedgerRestore, "", "archive="+args[0], err)
	}
	info, err := m.Read(path, func(r io.Reader) error {
		return l.Restore(ctx, r)
	})
	if err != nil {
		err = archiveError(err, path)
		return env.Audit(ctx, domain.ActionLedgerRestore, "", "archive="+args[0], err)
	}

	details := fmt.Sprintf("archive=%s entries=%d fingerprints=%d", info.ID, info.AuditEntries, info.Fingerprints)
	if err := env.Audit(ctx, domain.ActionLedgerRestore, "", details, nil); err != nil {
		return err
	}

	if env.Format != output.FormatTable {
		return env.Render(info)
	}
	fmt.Fprintf(env.Stdout, "✓ Restored %s (%d audit entries, %d fingerprints)\n",
		info.ID, info.AuditEntries, info.Fingerprints)
	return nil
}
