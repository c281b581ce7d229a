// Package main provides the contenthub server binary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/content-hub/pkg/contenthub"
	"github.com/tendant/content-hub/pkg/contenthub/api"
	"github.com/tendant/content-hub/pkg/contenthub/config"
	"github.com/tendant/content-hub/pkg/contenthub/metrics"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "contenthub"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "File-backed content hub for articles, PDFs and infographics",
		Long: `contenthub serves a small content catalogue over HTTP.

Each content type keeps its metadata in an index.json next to its files.
Configuration comes from an optional YAML file and the environment.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Content root, overrides DATA_DIR")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&flags), reconcileCmd(&flags), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			if port != "" {
				opts = append(opts, config.WithPort(port))
			}
			cfg, logger, err := setup(opts, flags.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port, overrides PORT")
	return cmd
}

func reconcileCmd(flags *globalFlags) *cobra.Command {
	var (
		prune  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report orphan files and dangling index records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags.options(), flags.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			hub, err := cfg.BuildHub(logger, contenthub.NewLoggingEventSink(logger))
			if err != nil {
				return err
			}
			reports, err := hub.Reconcile(cmd.Context(), prune)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), reports, asJSON)
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete orphan files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}

func (f *globalFlags) options() []config.Option {
	var opts []config.Option
	if f.configPath != "" {
		opts = append(opts, config.WithFile(f.configPath))
	} else {
		opts = append(opts, config.WithEnv())
	}
	if f.dataDir != "" {
		opts = append(opts, config.WithDataDir(f.dataDir))
	}
	return opts
}

// setup loads configuration and installs the default logger. A --log-level flag wins over LOG_LEVEL.
func setup(opts []config.Option, logLevel string, out io.Writer) (*config.ServerConfig, *slog.Logger, error) {
	if logLevel != "" {
		opts = append(opts, func(c *config.ServerConfig) error {
			c.LogLevel = logLevel
			return nil
		})
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func serve(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sink := contenthub.MultiEventSink{contenthub.NewLoggingEventSink(logger)}
	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
		sink = append(sink, collector)
	}

	hub, err := cfg.BuildHub(logger, sink)
	if err != nil {
		return err
	}

	handlerOpts := api.Options{
		AdminMode:      cfg.AdminMode,
		TokenAuth:      api.NewTokenAuth(cfg.AdminJWTSecret),
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	}
	if collector != nil {
		handlerOpts.Metrics = collector
		handlerOpts.MetricsHandler = collector.Handler()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewHandler(hub, handlerOpts).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("content hub starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"data_dir", cfg.DataDir,
			"storage", cfg.StorageURL,
			"admin_mode", cfg.AdminMode,
			"admin_token_required", cfg.AdminJWTSecret != "",
			"metrics", cfg.MetricsEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}

func printReports(w io.Writer, reports []contenthub.ReconcileReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, r := range reports {
		fmt.Fprintf(w, "%s: %d orphan(s), %d dangling, %d pruned\n", r.Kind, len(r.Orphans), len(r.Dangling), len(r.Pruned))
		for _, name := range r.Orphans {
			fmt.Fprintf(w, "  orphan   %s\n", name)
		}
		for _, key := range r.Dangling {
			fmt.Fprintf(w, "  dangling %s\n", key)
		}
		for _, name := range r.Pruned {
			fmt.Fprintf(w, "  pruned   %s\n", name)
		}
	}
	return nil
}
