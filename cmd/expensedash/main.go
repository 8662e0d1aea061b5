package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensedash/internal/amqp"
	"expensedash/internal/config"
	"expensedash/internal/export"
	apphttp "expensedash/internal/http"
	applog "expensedash/internal/log"
	"expensedash/internal/services"
	"expensedash/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "expensedash"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	dash := services.NewDashboardService(repo, cfg.DefaultTopN)

	// An AMQP URL routes exports through the job queue; without one the
	// server writes exports itself.
	var queue apphttp.ExportQueue
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		queue = client
		logger.Info("Export queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("No AMQP URL configured, exports run in-process")
	}

	writer, err := newExportWriter(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize export writer", "error", err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, dash, repo, queue, writer)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting expensedash server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
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
