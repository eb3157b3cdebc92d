package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/config"
	"github.com/roach88/ledgerbook/internal/logging"
	"github.com/roach88/ledgerbook/internal/remote"
	"github.com/roach88/ledgerbook/internal/repository"
	"github.com/roach88/ledgerbook/internal/store"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// fileSlotIdentity signs in to a file slot, which has no accounts.
const fileSlotIdentity = "local"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// app is the per-command wiring: configuration, logger, store and
// repository. Close releases everything it opened.
type app struct {
	ctx    context.Context
	opts   *RootOptions
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
	store  *store.Store
	repo   *repository.Repository
	out    *OutputFormatter
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.Settings != "" {
		cfg.SettingsPath = opts.Settings
	}
	return cfg, nil
}

// newLogger logs to the command's stderr unless a log file is configured.
// --verbose lowers the level to debug.
func newLogger(opts *RootOptions, cfg *config.Config, cmd *cobra.Command) (zerolog.Logger, io.Closer, error) {
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	if cfg.LogFilePath != "" {
		return logging.New(level, cfg.LogFilePath)
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), lvl), nopCloser{}, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openApp loads configuration and opens the store. Setup failures are
// reported with ExitCommandError.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	out := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, setupError(out, "failed to load configuration", err)
	}
	logger, closer, err := newLogger(opts, cfg, cmd)
	if err != nil {
		return nil, setupError(out, "failed to configure logging", err)
	}

	out.VerboseLog("Opening database %s", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		closer.Close()
		return nil, setupError(out, "failed to open database", err)
	}

	repoOpts := []repository.Option{repository.WithLogger(logger)}
	if opts.Clock != nil {
		repoOpts = append(repoOpts, repository.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		repoOpts = append(repoOpts, repository.WithIDGenerator(opts.IDs))
	}

	return &app{
		ctx:    commandContext(cmd),
		opts:   opts,
		cfg:    cfg,
		logger: logger,
		closer: closer,
		store:  st,
		repo:   repository.New(st, repoOpts...),
		out:    out,
	}, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("error closing database")
	}
	a.closer.Close()
}

// transferFlags are the per-command switches that override configuration.
type transferFlags struct {
	Strict bool
	Atomic bool
}

// engine builds a transfer engine from configuration, preferences and flags.
func (a *app) engine(flags transferFlags) (*transfer.Engine, error) {
	prefs, err := config.LoadPreferences(a.cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	mode, err := repository.ParseReplaceMode(a.cfg.ReplaceMode)
	if err != nil {
		return nil, err
	}
	if flags.Atomic {
		mode = repository.ReplaceAtomic
	}

	engineOpts := []transfer.Option{
		transfer.WithAppName(prefs.AppName),
		transfer.WithReplaceMode(mode),
		transfer.WithStrict(a.cfg.StrictImport || flags.Strict),
		transfer.WithLogger(a.logger),
	}
	if a.opts.Clock != nil {
		engineOpts = append(engineOpts, transfer.WithClock(a.opts.Clock))
	}

	slot, session := a.remote()
	if slot != nil {
		engineOpts = append(engineOpts, transfer.WithRemote(slot))
	}
	if session != nil {
		engineOpts = append(engineOpts, transfer.WithSession(session))
	}
	return transfer.New(a.repo, engineOpts...), nil
}

// remote picks the slot from overrides, then LEDGERBOOK_REMOTE_URL, then
// LEDGERBOOK_REMOTE_FILE. Both results are nil when nothing is configured.
func (a *app) remote() (remote.Slot, transfer.Session) {
	if a.opts.Slot != nil {
		return a.opts.Slot, a.opts.Session
	}
	switch {
	case a.cfg.RemoteURL != "":
		slot := remote.NewHTTPSlot(a.cfg.RemoteURL, a.cfg.RemoteToken, remote.DefaultTimeout)
		return slot, transfer.ProbeSession{ID: a.cfg.RemoteToken, Probe: slot.Ping}
	case a.cfg.RemoteFile != "":
		return remote.NewFileSlot(a.cfg.RemoteFile), transfer.StaticSession{ID: fileSlotIdentity, Reachable: true}
	}
	return nil, nil
}

// commandContext returns the command's context, or Background when the
// command was run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
