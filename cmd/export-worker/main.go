package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensedash/internal/amqp"
	"expensedash/internal/config"
	"expensedash/internal/export"
	applog "expensedash/internal/log"
	"expensedash/internal/services"
	"expensedash/internal/storage"
	"expensedash/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "export-worker"})
	applog.SetDefault(logger)

	logger.Info("Starting export worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	writer, err := newExportWriter(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize export writer", "error", err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	dash := services.NewDashboardService(repo, cfg.DefaultTopN)
	exportWorker := worker.NewExportWorker(dash, writer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return amqpClient.ConsumeExportJobs(groupCtx, exportWorker.HandleExportJob)
	})

	group.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Export worker stopped gracefully")
}

func newExportWriter(cfg *config.Config, logger *applog.Logger) (export.Writer, error) {
	switch cfg.ExportBackend {
	case "sheets":
		logger.Info("Using Google Sheets export backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return export.NewSheetsWriterFromEnv(context.Background())
	default:
		logger.Info("Using file export backend", "dir", cfg.ExportDir)
		return export.NewFileWriter(cfg.ExportDir, os.Getenv("EXPORT_PDF_FONT"))
	}
}
