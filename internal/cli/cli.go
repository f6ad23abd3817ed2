// ============================================================================
// clustersched CLI
// ============================================================================
//
// Package: internal/cli
// Purpose: cobra root command that wires storage, the scheduling engine,
// its background driver, Prometheus metrics, and the HTTP control-plane
// into one running process, and tears them down on SIGINT/SIGTERM.
//
// The required flags are --host, --port, and --storage; the rest
// (--storage-dsn, --config, --metrics-addr, --log-level) are the ambient
// surface any long-running service carries. A value loaded from --config
// is only used for a flag the caller did not pass explicitly on the
// command line.
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hatchway/clustersched/internal/engine"
	"github.com/hatchway/clustersched/internal/httpapi"
	"github.com/hatchway/clustersched/internal/metrics"
	"github.com/hatchway/clustersched/internal/storage"
	"github.com/hatchway/clustersched/internal/storage/factory"
)

var log = slog.Default()

// Version is overwritten at build time via -ldflags.
var Version = "dev"

const shutdownGracePeriod = 5 * time.Second

// BuildCLI assembles the clustersched root command. There is exactly one
// running mode, so the root command itself carries RunE rather than
// dispatching to subcommands.
func BuildCLI() *cobra.Command {
	var (
		host        string
		port        int
		storageKind string
		storageDSN  string
		configFile  string
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:     "clustersched",
		Short:   "A cluster job scheduler: first-fit placement over a pool of capacity-limited nodes",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			applyConfigDefaults(cmd, cfg, &host, &port, &storageKind, &storageDSN, &metricsAddr, &logLevel)

			if err := configureLogging(logLevel); err != nil {
				return err
			}

			return run(cmd.Context(), runOptions{
				host:        host,
				port:        port,
				storageKind: storage.Kind(storageKind),
				storageDSN:  storageDSN,
				metricsAddr: metricsAddr,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address the HTTP control-plane listens on")
	cmd.Flags().IntVar(&port, "port", 8080, "port the HTTP control-plane listens on")
	cmd.Flags().StringVar(&storageKind, "storage", string(storage.KindMemory), "storage backend: memory, postgresql, redis")
	cmd.Flags().StringVar(&storageDSN, "storage-dsn", "", "connection string for the postgresql/redis backends")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "optional YAML config file; explicit flags take precedence")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for a standalone Prometheus /metrics server (empty disables it)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

// applyConfigDefaults fills in any flag the caller left at its zero/default
// value from cfg, without overriding a value the caller explicitly passed.
func applyConfigDefaults(cmd *cobra.Command, cfg *Config, host *string, port *int, storageKind, storageDSN, metricsAddr, logLevel *string) {
	flags := cmd.Flags()
	if !flags.Changed("host") && cfg.Host != "" {
		*host = cfg.Host
	}
	if !flags.Changed("port") && cfg.Port != 0 {
		*port = cfg.Port
	}
	if !flags.Changed("storage") && cfg.Storage.Kind != "" {
		*storageKind = cfg.Storage.Kind
	}
	if !flags.Changed("storage-dsn") && cfg.Storage.DSN != "" {
		*storageDSN = cfg.Storage.DSN
	}
	if !flags.Changed("metrics-addr") && cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		*metricsAddr = cfg.Metrics.Addr
	}
	if !flags.Changed("log-level") && cfg.Log.Level != "" {
		*logLevel = cfg.Log.Level
	}
}

func configureLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	log = slog.Default()
	return nil
}

type runOptions struct {
	host        string
	port        int
	storageKind storage.Kind
	storageDSN  string
	metricsAddr string
}

// run builds the full dependency graph and blocks until SIGINT/SIGTERM,
// then tears it down: HTTP server first, then the driver, then storage,
// the reverse of construction order.
func run(ctx context.Context, opts runOptions) error {
	store, err := factory.New(opts.storageKind, opts.storageDSN)
	if err != nil {
		return fmt.Errorf("construct storage backend %q: %w", opts.storageKind, err)
	}

	collector := metrics.NewCollector()
	e := engine.New(store, engine.WithMetrics(collector))

	driver := engine.NewDriver(e)
	driver.Start()

	router := httpapi.NewRouter(e)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.host, opts.port),
		Handler: router,
	}

	serveErrs := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrs <- err
			return
		}
		serveErrs <- nil
	}()

	var metricsServer *http.Server
	if opts.metricsAddr != "" {
		metricsServer = &http.Server{Addr: opts.metricsAddr, Handler: collector.Handler()}
		go func() {
			log.Info("metrics server listening", "addr", opts.metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErrs:
		if err != nil {
			log.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown error", "error", err)
		}
	}

	driver.Stop()

	if err := store.Close(); err != nil {
		log.Error("storage close error", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
