// Package main implements the schema bootstrap CLI tool for the reefcast
// pipeline.
//
// The tool applies the forecast table DDL to the configured database and
// verifies that both tables are readable with the configured credentials.
// DDL statements are idempotent, so the tool is safe to run against a
// live database.
//
// Usage:
//
//	go run ./cmd/ops/schema
//	go run ./cmd/ops/schema --verify-only
//
// The database URL is resolved the same way the ingestor resolves it:
// from DATABASE_URL, with a .env file as a local-development fallback.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reefcast/internal/config"
	"reefcast/internal/db"
)

func main() {
	verifyOnly := flag.Bool("verify-only", false, "probe the tables without applying DDL")
	timeout := flag.Duration("timeout", 60*time.Second, "overall operation timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if !*verifyOnly {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("schema applied",
			"tables", []string{db.PlainTable, db.ScoredTable},
		)
	}

	if err := db.VerifySchema(ctx, pool); err != nil {
		logger.Error("schema verification failed", "error", err)
		os.Exit(1)
	}

	repo := db.NewForecastRepository(pool, 1, 0)
	for _, table := range []string{db.PlainTable, db.ScoredTable} {
		count, err := repo.CountSamples(ctx, table)
		if err != nil {
			logger.Error("failed to count rows", "table", table, "error", err)
			os.Exit(1)
		}
		logger.Info("table verified", "table", table, "rows", count)
	}

	logger.Info("schema verification complete")
}
