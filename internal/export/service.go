package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/invoiceflow/invoice-validator/internal/repository"
	"github.com/invoiceflow/invoice-validator/internal/validation"
)

// Service is a tiny façade over the document store that produces XLSX bytes
// for validation reports.
type Service struct {
	store  repository.DocumentStore
	logger *slog.Logger
}

func NewService(store repository.DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportValidationXLSX returns an XLSX workbook (as bytes) with one row per
// invoice of the doctype: validation status, confidence, issue counts and the
// summary text. Invoices never validated appear with empty status columns.
func (s *Service) ExportValidationXLSX(ctx context.Context, doctype string) ([]byte, error) {
	start := time.Now()

	names, err := s.store.List(ctx, doctype)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Validation"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice",
		"Period Start",
		"Period End",
		"Total Revenue",
		"Status",
		"Confidence %",
		"Missing",
		"Incorrect",
		"Comparisons",
		"Validated At",
		"Summary",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, name := range names {
		doc, err := s.store.Get(ctx, doctype, name)
		if err != nil {
			s.logger.Warn("export.load_failed", "name", name, "error", err)
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, name)
		write(2, doc.String("period_start"))
		write(3, doc.String("period_end"))
		if revenue, ok := doc.Float("total_revenue"); ok {
			write(4, revenue)
		}
		write(5, doc.String("ai_validation_status"))
		if conf, ok := doc.Float("ai_validation_confidence"); ok {
			write(6, conf)
		}

		missing, incorrect, comparisons := issueCounts(doc.String("ai_validation_result"))
		write(7, missing)
		write(8, incorrect)
		write(9, comparisons)
		write(10, doc.String("ai_validation_date"))
		write(11, truncate(doc.String("ai_validation_summary"), 200))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 24) // invoice name
	_ = f.SetColWidth(sheet, "B", "C", 14) // period
	_ = f.SetColWidth(sheet, "D", "F", 14) // amount, status, confidence
	_ = f.SetColWidth(sheet, "G", "I", 12) // counts
	_ = f.SetColWidth(sheet, "J", "J", 22) // date
	_ = f.SetColWidth(sheet, "K", "K", 60) // summary

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"doctype", doctype,
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// issueCounts decodes the stored result document; a missing or malformed
// payload yields zeros rather than an error so one bad row cannot sink the
// whole report.
func issueCounts(resultJSON string) (missing, incorrect, comparisons int) {
	if resultJSON == "" {
		return 0, 0, 0
	}
	var res validation.Result
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return 0, 0, 0
	}
	return len(res.Details.MissingFields), len(res.Details.IncorrectFields), len(res.Details.FieldComparisons)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
