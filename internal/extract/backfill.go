package extract

import (
	"context"
	"log/slog"

	"github.com/invoiceflow/invoice-validator/internal/repository"
)

// BackfillSummary counts the outcome of one sweep.
type BackfillSummary struct {
	Total   int
	Updated int
	Skipped int
	Errors  int
}

// Backfill walks every invoice of the doctype and fills in stamp-card fields
// extracted from raw_text. Invoices that already carry the data or have no
// raw text are skipped; per-invoice failures are logged and counted, never
// aborting the sweep.
func Backfill(ctx context.Context, store repository.DocumentStore, doctype string, logger *slog.Logger) (BackfillSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	names, err := store.List(ctx, doctype)
	if err != nil {
		return BackfillSummary{}, err
	}

	sum := BackfillSummary{Total: len(names)}
	for _, name := range names {
		updated, err := backfillOne(ctx, store, doctype, name, logger)
		switch {
		case err != nil:
			sum.Errors++
			logger.Error("stampcard.backfill_failed", "name", name, "error", err)
		case updated:
			sum.Updated++
		default:
			sum.Skipped++
		}
	}

	logger.Info("stampcard.backfill_done",
		"total", sum.Total, "updated", sum.Updated, "skipped", sum.Skipped, "errors", sum.Errors)
	return sum, nil
}

func backfillOne(ctx context.Context, store repository.DocumentStore, doctype, name string, logger *slog.Logger) (bool, error) {
	doc, err := store.Get(ctx, doctype, name)
	if err != nil {
		return false, err
	}

	if orders, ok := doc.Float("stamp_card_orders"); ok && orders > 0 {
		logger.Debug("stampcard.already_present", "name", name, "orders", orders)
		return false, nil
	}
	rawText := doc.String("raw_text")
	if rawText == "" {
		logger.Warn("stampcard.no_raw_text", "name", name)
		return false, nil
	}

	sc, ok := StampCardFromText(rawText)
	if !ok {
		logger.Debug("stampcard.not_found", "name", name)
		return false, nil
	}

	err = store.SetSystemFields(ctx, doctype, name, map[string]any{
		"stamp_card_orders": sc.Orders,
		"stamp_card_amount": sc.Amount,
	})
	if err != nil {
		return false, err
	}
	logger.Info("stampcard.updated", "name", name, "orders", sc.Orders, "amount", sc.Amount)
	return true, nil
}
