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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/config"
	"github.com/scangate/scangate/internal/history"
	"github.com/scangate/scangate/internal/metrics"
	"github.com/scangate/scangate/internal/telemetry"
	"github.com/scangate/scangate/internal/web"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	defaultConfigPath = "/etc/scangate/config.yaml"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gate dashboard, API, and /metrics",
	Long: `Start scangate as a long-running service over the run history database.

Pipelines keep gating with "scangate eval --history-db"; serve reads the
same database and exposes the stored runs.

Endpoints:
  /                    Dashboard with the latest verdict and recent runs
  /metrics             Prometheus scrape endpoint
  /healthz             Liveness probe
  /api/v1/runs         JSON list of recent run summaries
  /api/v1/runs/latest  JSON of the most recent run with its findings
  /api/v1/trend        Occurrences of one rule across runs (?rule=40012)`,
	Example: `  # Serve the database pipelines write to
  scangate serve --history-db /var/lib/scangate/history.db

  # Run with custom config file
  scangate serve --config /etc/scangate/config.yaml

  # Override listen address
  scangate serve --listen :9090

  # Run with JSON logging for log aggregation
  scangate serve --log-format json --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", defaultConfigPath, "Path to config file")
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serveCmd.Flags().String("history-db", "", "Path to SQLite history database (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load config
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg := config.Defaults()
	if cfgPath != "" {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		} else if cfgPath != defaultConfigPath {
			// Non-default path that doesn't exist is an error
			return fmt.Errorf("config file not found: %s", cfgPath)
		}
	}

	// Override listen addr from flag
	listenFlag, _ := cmd.Flags().GetString("listen") //nolint:errcheck // flag registered above
	if listenFlag != "" {
		cfg.ListenAddr = listenFlag
	}

	// Override history DB from flag
	historyDB, _ := cmd.Flags().GetString("history-db") //nolint:errcheck // flag registered above
	if historyDB != "" {
		cfg.HistoryDB = historyDB
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("serve needs a history database, set --history-db or historyDB in the config")
	}

	hs, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer hs.Close() //nolint:errcheck // best-effort cleanup on shutdown
	slog.Info("history database opened", "path", cfg.HistoryDB)

	// Initialize tracing
	otelEndpoint, _ := cmd.Flags().GetString("otel-endpoint") //nolint:errcheck // flag registered above
	tracer, tracerShutdown, tracerErr := telemetry.InitTracer(context.Background(), otelEndpoint, "scangate", version)
	if tracerErr != nil {
		slog.Warn("initializing tracer", "err", tracerErr)
		tracer, tracerShutdown, _ = telemetry.InitTracer(context.Background(), "", "scangate", version) //nolint:errcheck // empty endpoint cannot fail
	}
	defer tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/", web.UIHandler(hs))
	mux.HandleFunc("/healthz", web.HealthzHandler())
	mux.HandleFunc("/api/v1/runs", web.RunsHandler(hs))
	mux.HandleFunc("/api/v1/runs/latest", web.LatestHandler(hs))
	mux.HandleFunc("/api/v1/trend", web.TrendHandler(hs))
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pull the latest stored run into the gauges so /metrics reflects what
	// pipelines wrote since the last tick. Only called from one goroutine at
	// a time, so lastAt needs no lock.
	var lastAt time.Time
	refresh := func() {
		_, span := tracer.Start(ctx, "refresh_metrics")
		defer span.End()

		run, err := hs.Latest()
		if err != nil {
			span.RecordError(err)
			slog.Error("reading latest run", "err", err)
			return
		}
		if run == nil {
			return
		}
		collector.Update(*run)
		telemetry.RecordVerdict(span, run.Verdict)

		if run.At.After(lastAt) {
			lastAt = run.At
			slog.Info("new run recorded", "pipeline", run.Pipeline, "build", run.Build,
				"passed", run.Verdict.Passed, "failed", len(run.Verdict.Failures),
				"warned", len(run.Verdict.Warnings), "ignored", run.Verdict.Ignored)
		}
	}

	// Seed metrics from whatever is already stored
	refresh()

	// Start periodic refresh loop
	go func() {
		ticker := time.NewTicker(cfg.RefreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("refresh panic recovered", "panic", r)
						}
					}()
					refresh()
				}()
			}
		}
	}()

	// Start HTTP server
	srvErr := make(chan error, 1)
	go func() {
		slog.Info("scangate serve listening", "version", version, "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
