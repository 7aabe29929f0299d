package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"catalog-sync/internal/config"
	"catalog-sync/internal/logging"
	"catalog-sync/internal/metrics"
	"catalog-sync/internal/repository"
	"catalog-sync/internal/security"
	"catalog-sync/internal/service"
	"catalog-sync/internal/transform"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("file", cfg.File),
		zap.String("source_schema", cfg.Schema.Source),
		zap.String("target_schema", cfg.Schema.Target),
		zap.Bool("dry_run", cfg.Sync.DryRun),
	)

	m := metrics.New()
	defer pushMetrics(logger, m, cfg.Metrics)

	// Initialize database connection
	conn, err := config.InitDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database", zap.Error(err))
		m.SetRunResult(false, time.Now())
		return err
	}
	defer conn.Close()

	catalog, err := repository.NewSQLCatalog(conn.DB, conn.Driver.Dialect(), repository.Schemas{
		Source: cfg.Schema.Source,
		Target: cfg.Schema.Target,
	}, cfg.App.BatchSize)
	if err != nil {
		logger.Error("Invalid catalog schemas", zap.Error(err))
		return err
	}

	vault, err := security.NewCredentialVault([]byte(cfg.Security.CredentialKey))
	if err != nil {
		logger.Error("Failed to create credential vault", zap.Error(err))
		return err
	}

	svc := service.NewSyncService(catalog, vault, service.Options{
		DryRun: cfg.Sync.DryRun,
		History: repository.HistoryFilter{
			Enabled: cfg.Sync.History.Enabled,
			From:    cfg.Sync.History.From,
			To:      cfg.Sync.History.To,
			Status:  cfg.Sync.History.Status,
		},
		Transform: transform.Options{
			RawRoot:        cfg.Sync.RawRoot,
			TableSchema:    cfg.Sync.TableSchema,
			DefaultGroupID: cfg.Sync.DefaultGroupID,
			DefaultMaxTime: cfg.Sync.DefaultMaxTime,
		},
	}, logger, m)

	_, err = svc.Run(ctx)

	stats := conn.Stats()
	m.SetPoolStats(stats.OpenConnections, stats.InUse)
	return err
}

func pushMetrics(logger *zap.Logger, m *metrics.SyncMetrics, cfg config.MetricsConfig) {
	if cfg.PushgatewayURL == "" {
		return
	}
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		logger.Warn("Failed to push metrics", zap.String("url", cfg.PushgatewayURL), zap.Error(err))
	}
}
