package command

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/config"
	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/core/service"
	"github.com/yndnr/wrought-go/internal/infra/confloader"
	"github.com/yndnr/wrought-go/internal/storage/archive"
	"github.com/yndnr/wrought-go/internal/storage/ledger"
	"github.com/yndnr/wrought-go/internal/storage/sqlite"
	"github.com/yndnr/wrought-go/internal/telemetry/logger"
	"github.com/yndnr/wrought-go/internal/telemetry/metric"
)

const envKey = "wi.env"

// Audit outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeMismatch = "mismatch"
)

const unknownUser = "unknown"

var errLedgerDisabled = domain.ErrInvalidOptions.WithDetails("the audit ledger is disabled (--no-ledger or ledger.enabled=false)")

// Env is the per-invocation state shared by every command: the effective
// configuration, the logger and metrics registry, and the lazily opened
// database and ledger.
type Env struct {
	Config      *config.Config
	Logger      logger.Logger
	Metrics     *metric.Registry
	Format      output.Format
	Wide        bool
	User        string
	OperationID string
	// Sources lists the configuration layers that set at least one key.
	Sources []confloader.Layer

	Stdout io.Writer
	Stderr io.Writer

	store  *sqlite.Store
	ledger *ledger.Ledger
}

// newEnv loads configuration and builds the logger. Stores are opened on
// first use so that commands such as version never touch the disk.
func newEnv(c *cli.Context) (*Env, error) {
	flags := ParseGlobalFlags(c)

	// 1. Load and validate configuration
	cfg := config.Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(flags.Config),
		confloader.WithFlags(flags.overrides(c)),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, domain.ErrInvalidOptions.WithDetails("load configuration").WithCause(err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, err
	}

	// 2. Resolve output format
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, domain.ErrInvalidOptions.WithDetails(err.Error())
	}

	// 3. Build logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, domain.ErrInvalidOptions.WithDetails("configure logging").WithCause(err)
	}

	user := strings.TrimSpace(flags.User)
	if user == "" {
		user = unknownUser
	}

	env := &Env{
		Config:      cfg,
		Logger:      log,
		Metrics:     metric.NewRegistry(),
		Format:      format,
		Wide:        flags.Wide,
		User:        user,
		OperationID: ulid.Make().String(),
		Sources:     loader.Layers(),
		Stdout:      c.App.Writer,
		Stderr:      c.App.ErrWriter,
	}
	sources := make([]string, len(env.Sources))
	for i, layer := range env.Sources {
		sources[i] = layer.String()
	}
	env.Logger.Debug("configuration loaded",
		"sources", sources,
		"salt_origin", loader.Origin("fingerprint.salt"),
		"database", cfg.Database.Path,
		"ledger_enabled", cfg.Ledger.Enabled,
		"salted", cfg.Fingerprint.Salt != "",
	)
	return env, nil
}

// getEnv retrieves the Env installed by the Before hook.
func getEnv(c *cli.Context) *Env {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env
	}
	return nil
}

// Context returns the command context carrying the logger, operation ID
// and user.
func (e *Env) Context(c *cli.Context) context.Context {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, e.Logger)
	ctx = logger.WithOperationID(ctx, e.OperationID)
	return logger.WithUser(ctx, e.User)
}

// ServiceOptions returns the options every core service is built with.
func (e *Env) ServiceOptions(ctx context.Context, extra ...service.Option) []service.Option {
	opts := []service.Option{
		service.WithLogger(logger.L(ctx)),
		service.WithMetrics(e.Metrics),
	}
	return append(opts, extra...)
}

// Store opens the database on first use.
func (e *Env) Store() (*sqlite.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	db := e.Config.Database
	store, err := sqlite.Open(sqlite.Config{
		Path:         db.Path,
		BusyTimeout:  db.BusyTimeout,
		MaxOpenConns: db.MaxOpenConns,
	}, logger.Slog(e.Logger))
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("open database " + db.Path).WithCause(err)
	}
	e.store = store
	return store, nil
}

// Ledger opens the audit ledger on first use. It fails with
// ErrInvalidOptions when the ledger is disabled.
func (e *Env) Ledger() (*ledger.Ledger, error) {
	if !e.Config.Ledger.Enabled {
		return nil, errLedgerDisabled
	}
	if e.ledger != nil {
		return e.ledger, nil
	}
	dir, err := e.Config.Ledger.ResolvedDir()
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ledger.Config{
		Dir:        dir,
		SyncWrites: e.Config.Ledger.SyncWrites,
	}, logger.Slog(e.Logger))
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("open ledger").WithCause(err)
	}
	if err := l.RegisterMetrics(e.Metrics); err != nil {
		e.Logger.Warn("ledger metrics unavailable", "error", err)
	}
	e.ledger = l
	return l, nil
}

// Archives returns the ledger backup archive manager for dir, or for the
// configured backup directory when dir is empty.
func (e *Env) Archives(dir string) (*archive.Manager, error) {
	if dir == "" {
		var err error
		if dir, err = e.Config.Ledger.ResolvedBackupDir(); err != nil {
			return nil, err
		}
	}
	m, err := archive.NewManager(archive.Config{
		Dir:            dir,
		RetentionCount: e.Config.Ledger.BackupRetention,
	})
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("open backup directory").WithCause(err)
	}
	return m, nil
}

// Audit appends an entry for action on table describing opErr, then returns
// the error the command should report: opErr if set, otherwise any failure
// to write the entry. Nothing is written when the ledger is disabled.
func (e *Env) Audit(ctx context.Context, action, table, details string, opErr error) error {
	if !e.Config.Ledger.Enabled {
		return opErr
	}
	switch {
	case opErr == nil:
	case details == "":
		details = opErr.Error()
	case domain.KindOf(opErr) != domain.KindMismatch:
		details += ": " + opErr.Error()
	}

	entry := &domain.AuditEntry{
		User:    e.User,
		Action:  action,
		Table:   table,
		Outcome: outcomeOf(opErr),
		Details: details,
	}

	l, err := e.Ledger()
	if err == nil {
		err = l.Record(ctx, entry)
	}
	if err != nil {
		logger.L(ctx).Error("audit entry not recorded", "action", action, "table", table, "error", err)
		if opErr == nil {
			return domain.ErrStorage.WithDetails("record audit entry").WithCause(err)
		}
	}
	return opErr
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case domain.KindOf(err) == domain.KindMismatch:
		return OutcomeMismatch
	default:
		return OutcomeFailure
	}
}

// Render writes data to stdout in the selected format.
func (e *Env) Render(data any) error {
	return output.NewFormatter(e.Format, e.Wide).Format(e.Stdout, data)
}

// close writes the metrics textfile and releases the stores.
func (e *Env) close() {
	if path := e.Config.Metrics.Textfile; path != "" {
		if err := e.Metrics.WriteTextfile(path); err != nil {
			e.Logger.Error("metrics not written", "path", path, "error", err)
		}
	}
	if e.ledger != nil {
		if err := e.ledger.Close(); err != nil {
			e.Logger.Error("close ledger", "error", err)
		}
		e.ledger = nil
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.Logger.Error("close database", "error", err)
		}
		e.store = nil
	}
}

// requireArgs returns exactly len(names) positional arguments.
func requireArgs(c *cli.Context, names ...string) ([]string, error) {
	if c.NArg() != len(names) {
		return nil, usageError(c, strings.Join(names, " "))
	}
	return c.Args().Slice(), nil
}

func usageError(c *cli.Context, usage string) error {
	return domain.ErrInvalidOptions.WithDetailsf("usage: %s %s", c.Command.HelpName, usage)
}

// ledgerError maps a ledger failure into the domain taxonomy.
func ledgerError(err error, details string) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return domain.ErrFingerprintNotFound.WithDetails(details)
	}
	return domain.ErrStorage.WithDetails(details).WithCause(err)
}
