package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/invoiceflow/invoice-validator/constants"
	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/llm/openai"
	"github.com/invoiceflow/invoice-validator/internal/repository"
	"github.com/invoiceflow/invoice-validator/internal/schema"
	"github.com/invoiceflow/invoice-validator/internal/validation"
)

// One-shot validation runner: validate <invoice_name> [times]. Useful for
// checking prompt changes against the same record repeatedly.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: validate <invoice_name> [times]")
		os.Exit(2)
	}
	name := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
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

	client := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	svc := validation.NewService(store, schema.NewRegistry(), client, logger, validation.Config{
		MaxReferenceChars: cfg.Validation.MaxReferenceChars,
		SummaryMaxLen:     cfg.Validation.SummaryMaxLen,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
	})

	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("run.start", "iter", i, "name", name)

		res, err := svc.Validate(runCtx, constants.DoctypeLieferandoInvoice, name)
		cancelRun()

		if err != nil {
			logger.Error("run.error", "iter", i, "error", err)
			continue
		}
		logger.Info("run.ok",
			"iter", i,
			"status", string(res.Status),
			"confidence", res.Confidence,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if times == 1 {
			fmt.Println(res.JSON())
		}
	}

	logger.Info("done", "name", name, "times", times)
}
