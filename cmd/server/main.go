// Package main is the entry point for the foliotrack portfolio dashboard
// service. It wires configuration, databases, repositories, services and
// background jobs, then serves the dashboard API until shutdown.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/foliotrack/foliotrack/internal/clients/marketdata"
	"github.com/foliotrack/foliotrack/internal/config"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/modules/backup"
	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	"github.com/foliotrack/foliotrack/internal/modules/dashboard"
	dashboardhandlers "github.com/foliotrack/foliotrack/internal/modules/dashboard/handlers"
	"github.com/foliotrack/foliotrack/internal/modules/positions"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
	snapshothandlers "github.com/foliotrack/foliotrack/internal/modules/snapshots/handlers"
	"github.com/foliotrack/foliotrack/internal/scheduler"
	"github.com/foliotrack/foliotrack/internal/server"
	"github.com/foliotrack/foliotrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting foliotrack")

	// Databases: durable portfolio data and an ephemeral cache
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	// Repositories and services
	positionsRepo := positions.NewRepository(portfolioDB.Conn(), log)
	cashFlowsRepo := cashflows.NewRepository(portfolioDB.Conn(), log)
	pricesRepo := prices.NewRepository(cacheDB.Conn(), log)

	liveService := prices.NewService(pricesRepo, positionsRepo, cashFlowsRepo, cfg.PriceFreshnessMaxAge, log)
	dashboardCache := dashboard.NewCache(cacheDB.Conn(), cfg.DashboardCacheTTL, log)
	dashboardService := dashboard.NewService(positionsRepo, cashFlowsRepo, liveService, dashboardCache, log)
	snapshotService := snapshots.NewService(positionsRepo, pricesRepo, log)

	marketData := marketdata.NewClient(cfg.MarketDataBaseURL, cfg.MarketDataKey, cfg.MarketDataSecret, log)

	// Background jobs
	sched := scheduler.New(log)
	jobs := make(map[string]scheduler.Job)

	priceJob := scheduler.NewPriceRefreshJob(marketData, positionsRepo, pricesRepo, log)
	jobs[priceJob.Name()] = priceJob
	if cfg.PriceRefreshEnabled && marketData.Configured() {
		if err := sched.Every(cfg.PriceRefreshInterval, priceJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register price refresh job")
		}
	} else {
		log.Warn().Msg("Price refresh disabled or market data credentials missing, serving cached prices only")
	}

	snapshotJob := scheduler.NewSnapshotJob(snapshotService, positionsRepo, dashboardCache, log)
	jobs[snapshotJob.Name()] = snapshotJob
	if cfg.SnapshotEnabled {
		if err := sched.Every(cfg.SnapshotInterval, snapshotJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register snapshot job")
		}
	}

	walJob := scheduler.NewWALCheckpointJob([]*database.DB{portfolioDB, cacheDB}, log)
	jobs[walJob.Name()] = walJob
	if err := sched.AddJob("@hourly", walJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register WAL checkpoint job")
	}

	if cfg.BackupBucket != "" {
		backupService, err := backup.NewService(context.Background(), backup.Config{
			Bucket: cfg.BackupBucket,
			Prefix: cfg.BackupPrefix,
			Region: cfg.BackupRegion,
		}, []*database.DB{portfolioDB}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup service")
		}
		backupJob := scheduler.NewBackupJob(backupService)
		jobs[backupJob.Name()] = backupJob
		if err := sched.AddJob("@midnight", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:              log,
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		DataDir:          cfg.DataDir,
		PortfolioDB:      portfolioDB,
		CacheDB:          cacheDB,
		DashboardHandler: dashboardhandlers.NewHandler(dashboardService, liveService, log),
		SnapshotHandler:  snapshothandlers.NewHandler(snapshotService, positionsRepo, log),
		LiveService:      liveService,
		Jobs:             jobs,
	})

	sched.Start()

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	sched.Stop()

	log.Info().Msg("Shutdown complete")
}
