// Package main is the entry point for the qvalidate service. It runs
// parameterized quantum circuits on a remote backend, sweeps the circuit
// parameter across a range, computes validation metrics on the measurement
// histograms, and serves the analysed results over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/qvalidate/internal/analysis"
	"github.com/aristath/qvalidate/internal/circuit"
	"github.com/aristath/qvalidate/internal/clients/bluequbit"
	"github.com/aristath/qvalidate/internal/config"
	"github.com/aristath/qvalidate/internal/database"
	"github.com/aristath/qvalidate/internal/events"
	"github.com/aristath/qvalidate/internal/metrics"
	"github.com/aristath/qvalidate/internal/modules/charts"
	chartshandlers "github.com/aristath/qvalidate/internal/modules/charts/handlers"
	"github.com/aristath/qvalidate/internal/modules/results"
	"github.com/aristath/qvalidate/internal/modules/validation"
	validationhandlers "github.com/aristath/qvalidate/internal/modules/validation/handlers"
	"github.com/aristath/qvalidate/internal/reliability"
	"github.com/aristath/qvalidate/internal/scheduler"
	"github.com/aristath/qvalidate/internal/server"
	"github.com/aristath/qvalidate/internal/sweep"
	"github.com/aristath/qvalidate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting qvalidate")

	// Results database
	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "results.db"),
		Name: "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer db.Close()

	repo, err := results.NewRepository(db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize results repository")
	}

	// Core pipeline: circuit builder, remote execution client, metrics engine,
	// sweep orchestrator, statistical analysis.
	if cfg.BlueQubitToken == "" {
		log.Warn().Msg("BLUEQUBIT_API_TOKEN not set, run submissions will be rejected by the backend")
	}

	var clientOpts []bluequbit.Option
	if cfg.BlueQubitBaseURL != "" {
		clientOpts = append(clientOpts, bluequbit.WithBaseURL(cfg.BlueQubitBaseURL))
	}
	if cfg.BlueQubitDevice != "" {
		clientOpts = append(clientOpts, bluequbit.WithDevice(cfg.BlueQubitDevice))
	}
	client := bluequbit.NewClient(cfg.BlueQubitToken, log, clientOpts...)

	orchestrator := sweep.New(sweep.Config{
		Builder:     circuit.NewBuilder(),
		Client:      client,
		Engine:      metrics.NewEngine(),
		Params:      sweep.Params(cfg.SweepStart, cfg.SweepEnd, cfg.SweepPoints),
		Shots:       cfg.Shots,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
		Workers:     cfg.Workers,
		Log:         log,
	})

	bus := events.NewBus()
	validationService := validation.NewService(orchestrator, analysis.NewEngine(log), repo, bus, log)
	chartsService := charts.NewService(repo, log)

	// Optional cloud backups
	var backupService *reliability.BackupService
	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup.S3, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}
		backupService = reliability.NewBackupService(db, s3Client, cfg.DataDir, log)
	}

	// Background schedules
	sched := scheduler.New(log)
	if cfg.RunSchedule != "" {
		if err := sched.AddJob(cfg.RunSchedule, scheduler.NewValidationRunJob(validationService)); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.RunSchedule).Msg("Invalid run schedule")
		}
	}
	if cfg.BackupSchedule != "" && backupService != nil {
		if err := sched.AddJob(cfg.BackupSchedule, scheduler.NewBackupJob(backupService)); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.BackupSchedule).Msg("Invalid backup schedule")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:                log,
		Port:               cfg.Port,
		DataDir:            cfg.DataDir,
		ValidationHandlers: validationhandlers.NewHandler(validationService, log),
		ChartsHandlers:     chartshandlers.NewHandler(chartsService, log),
		EventBus:           bus,
		BackupService:      backupService,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Let an in-flight run finish writing its result before closing the
	// database.
	validationService.CancelRun()
	validationService.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
