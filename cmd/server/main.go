package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foliolab/folio/internal/config"
	"github.com/foliolab/folio/internal/marketdata"
	"github.com/foliolab/folio/internal/modules/backtest"
	"github.com/foliolab/folio/internal/modules/optimization"
	"github.com/foliolab/folio/internal/scheduler"
	"github.com/foliolab/folio/internal/server"
	"github.com/foliolab/folio/pkg/logger"
)

func main() {
	// Load configuration first so the logger honors LOG_LEVEL
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Folio")

	// Price data: per-symbol history databases behind a series cache
	history := marketdata.NewHistoryDB(cfg.DataDir, log)
	cacheTTL := time.Duration(cfg.CacheTTLHours) * time.Hour
	provider, err := marketdata.NewCachedProvider(history, cfg.CacheDBPath, cacheTTL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open price cache")
	}
	defer provider.Close()

	builder := marketdata.NewMatrixBuilder(provider, log)

	// Risk-profile overrides are optional
	limits := optimization.DefaultRiskLimits()
	if cfg.ProfilesFile != "" {
		limits, err = optimization.LoadRiskLimits(cfg.ProfilesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.ProfilesFile).Msg("Failed to load risk profiles")
		}
		log.Info().Str("file", cfg.ProfilesFile).Msg("Loaded risk profile overrides")
	}

	optService := optimization.NewService(builder, provider, limits, log)
	btService := backtest.NewService(builder, log)

	// Background jobs
	sched := scheduler.New(log)
	purge := scheduler.NewCachePurgeJob(provider, cacheTTL, log)
	if err := sched.AddJob("0 0 3 * * *", purge); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache purge job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:             cfg.Port,
		Log:              log,
		DataDir:          cfg.DataDir,
		DevMode:          cfg.DevMode,
		OptimizerHandler: optimization.NewHandler(optService, log),
		BacktestHandler:  backtest.NewHandler(btService, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
