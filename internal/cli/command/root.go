package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/infra/buildinfo"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitMismatch       = 1 // verification mismatch, drift, or an unclassified failure
	ExitInvalidOptions = 2
	ExitNotFound       = 3
	ExitAlreadyExists  = 4
	ExitStorage        = 5
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "wi",
		Usage:   "Data integrity toolkit: fingerprints, snapshots, rollback and drift checks",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			HashCommand(),
			SnapshotCommand(),
			RollbackCommand(),
			DriftCommand(),
			LogCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			env, err := newEnv(c)
			if err != nil {
				return err
			}
			c.App.Metadata[envKey] = env
			return nil
		},
		After: func(c *cli.Context) error {
			if env := getEnv(c); env != nil {
				env.close()
			}
			return nil
		},
		OnUsageError: onUsageError,
		// Exit codes are chosen by the caller through ExitCode.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	setUsageErrors(app.Commands)

	return app
}

// onUsageError reports flag parsing failures as invalid options.
func onUsageError(_ *cli.Context, err error, _ bool) error {
	return domain.ErrInvalidOptions.WithDetails(err.Error())
}

func setUsageErrors(cmds []*cli.Command) {
	for _, cmd := range cmds {
		cmd.OnUsageError = onUsageError
		setUsageErrors(cmd.Subcommands)
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (YAML)",
			EnvVars: []string{"WI_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "SQLite database file",
		},
		&cli.StringFlag{
			Name:  "ledger-dir",
			Usage: "Audit ledger directory",
		},
		&cli.BoolFlag{
			Name:  "no-ledger",
			Usage: "Do not open or write the audit ledger",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write Prometheus metrics to this file after the command",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "User recorded in the audit log",
			EnvVars: []string{"WI_USER", "USER"},
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config string

	// Overrides of configuration values
	Database    string
	LedgerDir   string
	NoLedger    bool
	LogLevel    string
	LogFormat   string
	MetricsFile string

	// Output format
	Output string // table, json, yaml
	Wide   bool

	User string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:      c.String("config"),
		Database:    c.String("db"),
		LedgerDir:   c.String("ledger-dir"),
		NoLedger:    c.Bool("no-ledger"),
		LogLevel:    c.String("log-level"),
		LogFormat:   c.String("log-format"),
		MetricsFile: c.String("metrics-file"),
		Output:      c.String("output"),
		Wide:        c.Bool("wide"),
		User:        c.String("user"),
	}
}

// overrides maps explicitly set flags to configuration keys. Unset flags
// are omitted so they never mask file or environment values.
func (f *GlobalFlags) overrides(c *cli.Context) map[string]any {
	values := make(map[string]any)
	if c.IsSet("db") {
		values["database.path"] = f.Database
	}
	if c.IsSet("ledger-dir") {
		values["ledger.dir"] = f.LedgerDir
	}
	if f.NoLedger {
		values["ledger.enabled"] = false
	}
	if c.IsSet("log-level") {
		values["log.level"] = f.LogLevel
	}
	if c.IsSet("log-format") {
		values["log.format"] = f.LogFormat
	}
	if c.IsSet("metrics-file") {
		values["metrics.textfile"] = f.MetricsFile
	}
	return values
}

// ExitCode maps an error returned by the application to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch domain.KindOf(err) {
	case domain.KindInvalidOptions:
		return ExitInvalidOptions
	case domain.KindNotFound:
		return ExitNotFound
	case domain.KindAlreadyExists:
		return ExitAlreadyExists
	case domain.KindStorage:
		return ExitStorage
	default:
		return ExitMismatch
	}
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
