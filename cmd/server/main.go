/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the regelmotor server: builds the rule registry,
  opens the calculation log and serves the HTTP API.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (YAML file, defaults, REGELMOTOR_* environment)
  3. Build the rule registry (barnepensjon, omstillingsstoenad)
  4. Initialize the calculation log (SQLite or in-memory)
  5. Configure metrics and run the scenario self-check
  6. Configure HTTP router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port, overrides configuration
  -db      SQLite database path, overrides configuration
           Use ":memory:" for an in-memory SQLite database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_seconds)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -config=./regelmotor.yaml
  ./server -db=":memory:" -port=3000
  REGELMOTOR_LOG_FORMAT=text ./server

SEE ALSO:
  - config/: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Calculation log
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/api"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/barnepensjon"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/config"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/omstillingsstoenad"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler/store"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "regelmotor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides configuration)")
	dbPath := flag.String("db", "", "SQLite database path (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
		cfg.Database.Memory = false
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	registry, err := buildRegistry()
	if err != nil {
		return fmt.Errorf("failed to build rule registry: %w", err)
	}
	logger.Info("rule registry built", "rules", registry.IDs())

	// Initialize calculation log
	var beregninger regler.BeregningStore
	if cfg.Database.Memory {
		beregninger = store.NewMemory()
		logger.Warn("calculation log is in memory, beregninger are lost on restart")
	} else {
		if cfg.Database.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		beregninger = db
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := api.NewHandler(registry, beregninger, api.NewMetrics(reg), logger)
	handler.BatchParallelism = cfg.Engine.BatchParallelism

	// A rule set that contradicts its own worked scenarios must not serve.
	for _, check := range handler.CheckScenarios() {
		if !check.Matches() {
			return fmt.Errorf("scenario self-check failed: %s", check.Scenario.ID)
		}
	}

	opts := api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.Metrics.MetricsEnabled() {
		opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		opts.MetricsPath = cfg.Metrics.Path
	}
	router := api.NewRouter(handler, opts)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "database", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildRegistry registers every benefit's rules in a fixed order.
func buildRegistry() (*regler.Registry, error) {
	b := regler.NewRegistryBuilder()
	for _, register := range []func(*regler.RegistryBuilder) error{
		barnepensjon.Register,
		omstillingsstoenad.Register,
	} {
		if err := register(b); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
