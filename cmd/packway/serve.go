package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/config"
	"github.com/sagarc03/packway/database"
	"github.com/sagarc03/packway/filesystem"
	"github.com/sagarc03/packway/gitexec"
	packwayhttp "github.com/sagarc03/packway/http"
	"github.com/sagarc03/packway/keybackend"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the packway HTTP server.

Every bare repository below the configured root is reachable at its path
relative to the root, for example http://host:8080/team/project.git.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("adapter", "gitexec", "git adapter: gitexec, legacy")
	serveCmd.Flags().Bool("allow-pull", true, "allow or deny fetches for every repository; unset defers to http.uploadpack")
	serveCmd.Flags().Bool("allow-push", false, "allow or deny pushes for every repository; unset defers to http.receivepack")
	serveCmd.Flags().String("metrics", "", "address for the Prometheus metrics listener, e.g. :9100")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	root, err := filesystem.Open(cfg.Repos.Root)
	if err != nil {
		return fmt.Errorf("open repository root: %w", err)
	}
	defer func() { _ = root.Close() }()

	factory, err := repositoryFactory(cfg.Git)
	if err != nil {
		return err
	}

	readVerifier, writeVerifier, err := verifiers(cfg.Auth)
	if err != nil {
		return err
	}

	var exchanges packway.ExchangeLog
	if cfg.Audit.Enabled {
		log, closeLog, err := database.Connect(ctx, auditDatabaseConfig(cfg.Audit))
		if err != nil {
			return fmt.Errorf("connect exchange log: %w", err)
		}
		defer closeLog()
		exchanges = log
		slog.Info("exchange log enabled", "type", cfg.Audit.Type)
	}

	var metrics *packwayhttp.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = packwayhttp.NewMetrics(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}
	}

	handler := packwayhttp.NewHandler(&packwayhttp.HandlerConfig{
		Policy:        cfg.Access.Policy(),
		ReadVerifier:  readVerifier,
		WriteVerifier: writeVerifier,
		CORS:          cfg.CORS,
		Metrics:       metrics,
		Exchanges:     exchanges,
		Logger:        slog.Default(),
	}, root, factory)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	if metricsServer != nil {
		go func() {
			slog.Info("starting metrics server", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		slog.Info("starting server",
			"addr", addr,
			"root", root.Dir(),
			"adapter", cfg.Git.Adapter,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "err", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "err", err)
		}
	}

	return serveErr
}

// repositoryFactory picks how repositories are opened for the lifetime of
// the process.
func repositoryFactory(cfg config.GitConfig) (packway.RepositoryFactory, error) {
	switch cfg.Adapter {
	case "gitexec":
		return gitexec.NewFactory(cfg.BinPath), nil
	case "legacy":
		return gitexec.NewLegacyFactory(cfg.BinPath), nil
	default:
		return nil, fmt.Errorf("unsupported git adapter: %s", cfg.Adapter)
	}
}

// verifiers returns the basic auth verifiers for reads and writes. A nil
// verifier leaves that access class public.
func verifiers(cfg config.AuthConfig) (read, write packwayhttp.RequestVerifier, err error) {
	if cfg.Read == "public" && cfg.Write == "public" {
		return nil, nil, nil
	}

	store, err := keybackend.NewCredentialStore(cfg.Credentials)
	if err != nil {
		return nil, nil, fmt.Errorf("load credentials: %w", err)
	}
	if store.Len() == 0 {
		slog.Warn("authentication is enabled but no credentials are configured")
	}

	verifier := keybackend.NewBasicVerifier(store)
	if cfg.Read == "private" {
		read = verifier
	}
	if cfg.Write == "private" {
		write = verifier
	}
	return read, write, nil
}

func auditDatabaseConfig(cfg config.AuditConfig) database.Config {
	return database.Config{
		Type:   cfg.Type,
		DSN:    cfg.DSN,
		Tables: cfg.Tables,
	}
}
