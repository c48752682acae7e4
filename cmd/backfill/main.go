package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/invoiceflow/invoice-validator/constants"
	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/extract"
	"github.com/invoiceflow/invoice-validator/internal/repository"
)

// Sweeps every invoice and fills in stamp-card figures parsed from the stored
// raw PDF text. Safe to re-run; invoices already carrying the data are
// skipped.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" && cfg.Database.SQLitePath == "" {
		logger.Error("DB_URL or SQLITE_PATH env var is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var store repository.DocumentStore
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		defer repository.Close(pool, logger)
		store = repository.NewInvoiceStore(pool, logger)
	} else {
		sq, err := repository.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Error("open sqlite", "error", err)
			os.Exit(1)
		}
		defer sq.Close()
		store = sq
	}

	sum, err := extract.Backfill(ctx, store, constants.DoctypeLieferandoInvoice, logger)
	if err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
	logger.Info("backfill summary",
		"total", sum.Total, "updated", sum.Updated, "skipped", sum.Skipped, "errors", sum.Errors)
	if sum.Errors > 0 {
		os.Exit(1)
	}
}
