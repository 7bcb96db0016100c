package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lukasbrandt/speisekarten-tracker/internal/audit"
	"github.com/lukasbrandt/speisekarten-tracker/internal/auth"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/export"
	"github.com/lukasbrandt/speisekarten-tracker/internal/extract"
	"github.com/lukasbrandt/speisekarten-tracker/internal/ingest"
	"github.com/lukasbrandt/speisekarten-tracker/internal/ocr"
	"github.com/lukasbrandt/speisekarten-tracker/internal/publish"
	"github.com/lukasbrandt/speisekarten-tracker/internal/repository"
	"github.com/lukasbrandt/speisekarten-tracker/internal/server"
	"github.com/lukasbrandt/speisekarten-tracker/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, 3*time.Second); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database health OK")

	sink, err := audit.Open(cfg.Audit.Path, logger)
	if err != nil {
		logger.Error("audit sink unavailable", "path", cfg.Audit.Path, "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	ocrEngine := ocr.NewEngine(ocr.Config{
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)
	defer ocrEngine.Close()

	batches := repository.NewBatchRepository(pool, logger)
	items := repository.NewParsedItemRepository(pool, logger)
	catalog := repository.NewCatalogRepository(pool, logger)

	orchestrator := ingest.NewOrchestrator(
		batches, items,
		extract.NewEngine(logger), ocrEngine,
		publish.NewEngine(catalog, logger),
		repository.NewTxRunner(pool),
		storage.NewFilesystemStore(cfg.Storage.Root, logger),
		sink, logger,
	)

	srv := server.New(
		orchestrator,
		export.NewService(batches, items, logger),
		auth.NewStaticTokenAuthorizer(cfg.Server.AdminToken),
		func(ctx context.Context) error { return repository.HealthCheck(ctx, pool, 3*time.Second) },
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
