package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberaid/internal/config"
	"github.com/roach88/cyberaid/internal/intake"
	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
	"github.com/roach88/cyberaid/internal/store"
)

// app is everything a command needs, opened from one config.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	records  *store.Store
	chain    *ledger.Chain
	service  *ledger.Service
	workflow *intake.Workflow

	closers []func() error
}

// openApp loads the config and opens the record store and the ledger.
// Failures are reported through f and returned as *ExitError.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	a := &app{cfg: cfg, logger: cfg.Log.NewLogger(cmd.ErrOrStderr())}
	if err := a.open(ctx, opts); err != nil {
		a.Close()
		return nil, a.fail(f, err)
	}
	return a, nil
}

func (a *app) open(ctx context.Context, opts *RootOptions) error {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	records, err := openStore(a.cfg.Records.Path, now)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	a.closers = append(a.closers, records.Close)
	a.records = records

	var backend ledger.Backend
	switch {
	case a.cfg.SharedDatabase():
		backend = records
	case a.cfg.Ledger.Backend == config.BackendSQLite:
		db, err := openStore(a.cfg.Ledger.Path, now)
		if err != nil {
			return fmt.Errorf("open ledger database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		backend = db
	default:
		backend = store.NewFileBackend(a.cfg.Ledger.Path)
	}

	a.chain, err = ledger.OpenChain(ctx, backend,
		ledger.WithClock(now),
		ledger.WithLogger(a.logger),
		ledger.WithResetOnCorrupt(a.cfg.Ledger.ResetOnCorrupt),
	)
	if err != nil {
		return err
	}

	schema, err := report.LoadSchemaValidator(a.cfg.Schema.Path)
	if err != nil {
		return &configError{err: err}
	}

	a.service = ledger.NewService(a.chain,
		ledger.WithValidator(schema),
		ledger.WithServiceLogger(a.logger),
	)

	wopts := []intake.Option{
		intake.WithValidator(schema),
		intake.WithLogger(a.logger),
	}
	if opts.NewID != nil {
		wopts = append(wopts, intake.WithIDGenerator(opts.NewID))
	}
	a.workflow = intake.New(a.records, a.service, wopts...)
	return nil
}

// fail maps open errors onto exit codes.
func (a *app) fail(f *OutputFormatter, err error) error {
	var cfgErr *configError
	switch {
	case errors.As(err, &cfgErr):
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load report schema", cfgErr.err)
	case ledger.IsCorruptStorage(err):
		return f.Fail(ExitFailure, ErrCodeCorrupt,
			"ledger storage is corrupt; set ledger.reset_on_corrupt to quarantine it and start a new chain", err)
	default:
		var pe *ledger.PersistenceError
		if errors.As(err, &pe) {
			return f.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write ledger", err)
		}
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to open ledger", err)
	}
}

// Close releases the databases. Errors are logged, not returned.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("error closing database", "error", err)
		}
	}
	a.closers = nil
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// openStore opens a SQLite database, creating its directory first.
func openStore(path string, now func() time.Time) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return store.Open(path, store.WithClock(now))
}

// commandContext returns cmd's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
