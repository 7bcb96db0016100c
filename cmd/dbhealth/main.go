package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/repository"
)

// dbhealth verifies the database connection and reports batch counts per
// status. Handy for checking a deployment before pointing traffic at it.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL env var is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, time.Second); err != nil {
		logger.Error("database health FAIL", "error", err)
		os.Exit(1)
	}
	logger.Info("database health OK")

	rows, err := pool.Query(ctx, `SELECT status, COUNT(*) FROM menu_batches GROUP BY status ORDER BY status`)
	if err != nil {
		logger.Error("counting batches", "error", err)
		os.Exit(1)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			logger.Error("scanning counts", "error", err)
			os.Exit(1)
		}
		logger.Info("batches", "status", status, "count", count)
		total += count
	}
	if err := rows.Err(); err != nil {
		logger.Error("reading counts", "error", err)
		os.Exit(1)
	}
	logger.Info("total batches", "count", total)
}
