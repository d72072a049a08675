// Package main is the entry point for the admin API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"adminnext/internal/config"
	"adminnext/internal/domain/admin"
	v1 "adminnext/internal/infrastructure/http/v1"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting admin server", "env", cfg.App.Env, "dialect", cfg.Database.Dialect)

	// --- Database ---
	db, err := sqldb.Open(ctx, cfg.DBConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.Bootstrap {
		if err := bootstrap(ctx, db); err != nil {
			log.Fatalw("failed to bootstrap schema", "error", err)
		}
		log.Info("demo schema ready")
	}

	// --- Admin registry and service ---
	registry, err := setupAdminRegistry()
	if err != nil {
		log.Fatalw("failed to register models", "error", err)
	}
	log.Infow("admin registry initialized", "models", len(registry.Models()))

	var opts []admin.ServiceOption
	if cfg.Audit.Enabled {
		auditService, err := sqldb.NewAuditService(cfg.Audit.CompressThreshold)
		if err != nil {
			log.Fatalw("failed to create audit service", "error", err)
		}
		opts = append(opts, admin.WithAuditor(auditService))
	}
	service := admin.NewService(registry, opts...)

	// --- Metrics ---
	var metrics *prometheus.Registry
	if cfg.HTTP.Metrics {
		metrics = prometheus.NewRegistry()
		metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewDBStatsCollector(db.DB, cfg.Database.Dialect),
		)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		DB:          db,
		Service:     service,
		Logger:      log,
		Prefix:      cfg.HTTP.Prefix,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Metrics:     metrics,
		Debug:       cfg.App.Debug,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr, "prefix", cfg.HTTP.Prefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
