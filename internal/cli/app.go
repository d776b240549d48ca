package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/concha/internal/config"
	"github.com/roach88/concha/internal/engine"
	"github.com/roach88/concha/internal/loader"
	"github.com/roach88/concha/internal/logging"
	"github.com/roach88/concha/internal/parser"
	"github.com/roach88/concha/internal/remote"
	"github.com/roach88/concha/internal/server"
	"github.com/roach88/concha/internal/store"
	"github.com/roach88/concha/internal/trick"
)

// loadConfig reads --config when given, otherwise the defaults.
// --verbose always wins over log.verbose.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		cfg, err = config.Load(opts.Config)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}
	if opts.Verbose {
		cfg.Log.Verbose = true
	}
	return cfg, nil
}

// setupLogger builds the process logger on the command's stderr.
func setupLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, func() error, error) {
	logger, closeLog, err := logging.Setup(logging.Options{
		Writer:  cmd.ErrOrStderr(),
		Verbose: cfg.Log.Verbose,
		File:    cfg.Log.File,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	return logger, closeLog, nil
}

// newParser builds the parser selected by cfg.
func newParser(cfg config.ParserConfig) engine.Parser {
	if cfg.Mode == config.ParserCommand {
		return parser.NewCommandParser(cfg.Command, cfg.Dir)
	}
	return parser.NewHTTPParser(cfg.URL, cfg.Language, cfg.Timeout)
}

// newEngine builds an engine over repo configured from cfg. observer
// may be nil.
func newEngine(repo *trick.Repository, p engine.Parser, cfg config.Config, logger *slog.Logger, observer engine.Observer) *engine.Engine {
	opts := []engine.EngineOption{
		engine.WithMaxDepth(cfg.Engine.MaxDepth),
		engine.WithMaxIterations(cfg.Engine.MaxIterations),
		engine.WithTimeout(cfg.Engine.Timeout),
		engine.WithCaller(remote.New(cfg.Remote.Timeout)),
		engine.WithLogger(logger),
	}
	if cfg.Engine.Seed != nil {
		opts = append(opts, engine.WithSeed(*cfg.Engine.Seed))
	}
	if observer != nil {
		opts = append(opts, engine.WithObserver(observer))
	}
	return engine.New(repo, p, opts...)
}

// openStore opens the database when one is configured. A nil store
// means persistence is off.
func openStore(cfg config.Config) (*store.Store, error) {
	if cfg.Database == "" {
		return nil, nil
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// fillRepository loads the tricks a process starts with. A rules
// directory is authoritative; otherwise the database log is replayed.
func fillRepository(ctx context.Context, repo *trick.Repository, cfg config.Config, st *store.Store, logger *slog.Logger) error {
	switch {
	case cfg.Rules.Dir != "":
		result, errs := loader.Load(cfg.Rules.Dir, loader.LoadModeCollectAll)
		if len(errs) > 0 {
			for _, err := range errs {
				logger.Error("rule file rejected", "error", err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load rules from %s", cfg.Rules.Dir), errors.Join(errs...))
		}
		n := server.Seed(repo, result)
		logger.Info("rules loaded", "dir", cfg.Rules.Dir, "files", result.FileCount, "tricks", n)
	case st != nil:
		n, err := server.Restore(ctx, repo, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to restore tricks", err)
		}
		logger.Info("tricks restored", "database", cfg.Database, "tricks", n)
	default:
		logger.Warn("starting with an empty trick repository")
	}
	return nil
}
