package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/concha/internal/config"
	"github.com/roach88/concha/internal/loader"
	"github.com/roach88/concha/internal/server"
	"github.com/roach88/concha/internal/trick"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command. Set flags override
// the configuration file.
type ServeOptions struct {
	*RootOptions
	Listen   string
	Database string
	Rules    string
	Watch    bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tricks and documents HTTP API",
		Long: `Serve the HTTP API:

  POST/GET          /v1/tricks
  GET/PUT/DELETE    /v1/tricks/{id}
  POST/GET          /v1/documents
  POST              /v1/documents:analyzeSyntax
  GET               /metrics

Tricks come from --rules when set, otherwise from the database log.
With --watch the rules directory is reloaded whenever a rule file changes.

Examples:
  concha serve --rules ./rules --watch
  concha serve --config concha.yaml --db concha.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, &cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, nil)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "listen address (default from config, :7000)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for tricks and documents")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "directory of rule files loaded at startup")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload the rules directory on change")

	return cmd
}

// apply copies the flags the user set over cfg.
func (o *ServeOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = o.Listen
	}
	if flags.Changed("db") {
		cfg.Database = o.Database
	}
	if flags.Changed("rules") {
		cfg.Rules.Dir = o.Rules
	}
	if flags.Changed("watch") {
		cfg.Rules.Watch = o.Watch
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return nil
}

// runServe runs the API until ctx ends. When ready is non-nil it
// receives the bound address once the listener is open.
func runServe(ctx context.Context, cmd *cobra.Command, cfg config.Config, ready chan<- net.Addr) error {
	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	repo := trick.NewRepository()
	if err := fillRepository(ctx, repo, cfg, st, logger); err != nil {
		return err
	}

	metrics := server.NewMetrics()
	p := metrics.InstrumentParser(newParser(cfg.Parser))
	eng := newEngine(repo, p, cfg, logger, metrics)

	srvOpts := []server.Option{server.WithMetrics(metrics), server.WithLogger(logger)}
	if st != nil {
		srvOpts = append(srvOpts, server.WithJournal(st))
	}
	srv := server.New(repo, eng, p, srvOpts...)

	if cfg.Rules.Watch {
		dir := cfg.Rules.Dir
		go func() {
			err := loader.Watch(ctx, dir, loader.DefaultDebounce, logger, func() {
				if err := srv.ReloadRules(dir); err != nil {
					logger.Warn("rules reload failed", "error", err)
				}
			})
			if err != nil {
				logger.Error("rules watcher stopped", "dir", dir, "error", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logger.Info("serving", "addr", ln.Addr().String(), "tricks", repo.Len())
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	return nil
}
