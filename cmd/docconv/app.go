package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docconv/internal/api"
	"docconv/internal/config"
	"docconv/internal/console"
	"docconv/internal/datadir"
	"docconv/internal/filestore"
	"docconv/internal/history"
	"docconv/internal/logging"
	"docconv/internal/session"
	"docconv/internal/version"
	"docconv/pkg/protocol"
)

// appMode selects where logs go: interactive modes own the terminal and log
// to a file, one-shot commands log warnings to stderr.
type appMode int

const (
	modeCLI appMode = iota
	modeInteractive
)

// app holds everything one command invocation needs
type app struct {
	cfg     *config.Config
	dd      *datadir.DataDir
	logger  zerolog.Logger
	client  *api.Client
	store   filestore.Store
	history *history.Store
	printer *console.Printer

	closers []io.Closer
}

// appOption adjusts the loaded configuration before services are built
type appOption func(*config.Config)

func withDownloadDir(dir string) appOption {
	return func(c *config.Config) {
		if dir != "" {
			c.Download.Store = "local"
			c.Download.Dir = dir
		}
	}
}

// newApp loads .env files and the configuration, applies global flag
// overrides and builds the logger, API client, download store and history.
func newApp(cmd *cobra.Command, mode appMode, opts ...appOption) (*app, error) {
	// Load .env files early so ${ENV_VAR} references in the config resolve
	bootstrap, err := datadir.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	_ = datadir.LoadEnv(bootstrap.Root())

	path := cfgFile
	if path == "" {
		path = bootstrap.FilePath("config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cfg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dd, err := datadir.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := dd.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &app{cfg: cfg, dd: dd}
	if err := a.initLogger(cmd, mode); err != nil {
		return nil, err
	}

	if mode == modeCLI {
		var popts []console.Option
		if noColor {
			popts = append(popts, console.WithNoColor())
		}
		if !isTerminal(cmd.ErrOrStderr()) {
			popts = append(popts, console.WithoutAnimation())
		}
		a.printer = console.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), popts...)
	}

	clientOpts := []api.Option{
		api.WithTimeout(cfg.API.Timeout()),
		api.WithUserAgent(userAgent(cfg)),
		api.WithLogger(logging.Component(a.logger, "api")),
	}
	if a.printer != nil {
		clientOpts = append(clientOpts, api.WithProgress(a.printer.Progress))
	}
	a.client = api.New(cfg.API.BaseURL, clientOpts...)

	store, err := filestore.New(cfg.Download.StoreConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create download store: %w", err)
	}
	a.store = store

	if cfg.History.Enabled {
		if err := a.openHistory(cmd.Context(), mode); err != nil {
			// History is a convenience; operations still work without it
			a.logger.Warn().Err(err).Msg("history disabled")
		}
	}

	return a, nil
}

func applyFlags(cfg *config.Config) error {
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if outputFormat != "" {
		cfg.OutputFormat = protocol.OutputFormat(outputFormat)
	}
	if apiURL != "" || outputFormat != "" {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func userAgent(cfg *config.Config) string {
	if cfg.API.UserAgent != "" {
		return cfg.API.UserAgent
	}
	return version.UserAgent()
}

func (a *app) initLogger(cmd *cobra.Command, mode appMode) error {
	opts := logging.Options{Level: a.cfg.Log.Level, Format: a.cfg.Log.Format}
	if verbose {
		opts.Level = "debug"
	}

	file := a.cfg.Log.File
	if mode == modeInteractive && file == "" {
		file = a.dd.LogFile()
	}
	if file != "" {
		logger, closer, err := logging.OpenFile(file, opts)
		if err != nil {
			return err
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
		return nil
	}

	if !verbose {
		opts.Level = "warn"
	}
	opts.Output = cmd.ErrOrStderr()
	a.logger = logging.New(opts)
	return nil
}

func (a *app) openHistory(ctx context.Context, mode appMode) error {
	path := a.cfg.History.Path
	if path == "" {
		path = a.dd.HistoryDB()
	}
	h, err := history.Open(path, history.WithLogger(logging.Component(a.logger, "history")))
	if err != nil {
		return err
	}
	a.history = h
	a.closers = append(a.closers, h)

	// The SSH server prunes on its own schedule
	if mode == modeCLI && a.cfg.History.Retention() > 0 {
		if _, err := h.Prune(ctx, a.cfg.History.Retention()); err != nil {
			a.logger.Warn().Err(err).Msg("history pruning failed")
		}
	}
	return nil
}

// newController builds a session controller wired to the app's services
func (a *app) newController(logger zerolog.Logger) *session.Controller {
	form := a.cfg.Splitter.Form()
	cfg := session.Config{
		API:          a.client,
		Store:        a.store,
		Logger:       logger,
		OutputFormat: a.cfg.OutputFormat,
		Splitter:     &form,
		DismissAfter: a.cfg.UI.StatusDismiss(),
	}
	if a.history != nil {
		cfg.History = a.history
	}
	if a.printer != nil {
		cfg.OnStatus = a.printer.Status
	}
	return session.New(cfg)
}

// Close releases the history database and the log file
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// workingDir is where the TUI file picker starts
func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(wd)
}
