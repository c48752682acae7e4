package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/invoiceflow/invoice-validator/constants"
	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/llm"
	"github.com/invoiceflow/invoice-validator/internal/repository"
	"github.com/invoiceflow/invoice-validator/internal/schema"
)

// Config holds validation pipeline tuning.
type Config struct {
	MaxReferenceChars int     // default 15000
	SummaryMaxLen     int     // default 200
	Temperature       float32 // default 0.3
	MaxTokens         int     // default 2000
}

// Service runs the full validation pipeline for one record: project fields,
// build the prompt, call the completion API, normalize the output, persist
// exactly one outcome.
type Service struct {
	store   repository.DocumentStore
	schemas schema.Introspector
	client  llm.CompletionClient
	norm    *Normalizer
	logger  *slog.Logger
	cfg     Config
}

func NewService(store repository.DocumentStore, schemas schema.Introspector, client llm.CompletionClient, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxReferenceChars <= 0 {
		cfg.MaxReferenceChars = constants.MaxReferenceChars
	}
	if cfg.SummaryMaxLen <= 0 {
		cfg.SummaryMaxLen = constants.SummaryMaxLen
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &Service{
		store:   store,
		schemas: schemas,
		client:  client,
		norm:    NewNormalizer(client, logger),
		logger:  logger,
		cfg:     cfg,
	}
}

// Validate runs the pipeline synchronously. Every unrecoverable failure
// triggers a best-effort Error-status write before the error is returned;
// only that fallback write's own failure is swallowed (logged).
func (s *Service) Validate(ctx context.Context, doctype, name string) (*Result, error) {
	start := time.Now()
	s.logger.Info("validate.start", "doctype", doctype, "name", name)

	doc, err := s.store.Get(ctx, doctype, name)
	if err != nil {
		return nil, s.fail(ctx, doctype, name, err)
	}

	rawText := doc.String("raw_text")
	if rawText == "" {
		// Fail before any network call; nothing partial is written.
		return nil, s.fail(ctx, doctype, name, common.ErrMissingReferenceText)
	}

	fieldDefs, err := s.schemas.Fields(doctype)
	if err != nil {
		return nil, s.fail(ctx, doctype, name, err)
	}
	projected := ProjectFields(doc, fieldDefs)

	req := llm.CompletionRequest{
		System:      BuildSystemPrompt(),
		User:        BuildUserPrompt(doctype, name, projected, rawText, s.cfg.MaxReferenceChars),
		JSONMode:    true,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}
	out, err := s.client.Complete(ctx, req)
	if err != nil {
		// Some backends reject the strict-JSON response option; retry once
		// without it before giving up.
		s.logger.Warn("validate.json_mode_failed", "doctype", doctype, "name", name, "error", err)
		req.JSONMode = false
		out, err = s.client.Complete(ctx, req)
	}
	if err != nil {
		return nil, s.fail(ctx, doctype, name, err)
	}

	res, err := s.norm.Normalize(ctx, out)
	if err != nil {
		return nil, s.fail(ctx, doctype, name, err)
	}
	res.EnforceConfidenceRule()

	if vErr := ValidateResultJSON([]byte(res.JSON())); vErr != nil {
		s.logger.Warn("validate.result_schema_violation", "doctype", doctype, "name", name, "error", vErr)
	}

	status := res.Status
	if status == "" {
		status = constants.ValidationError
	}
	fields := map[string]any{
		"ai_validation_status":     string(status),
		"ai_validation_summary":    truncate(res.Summary, s.cfg.SummaryMaxLen),
		"ai_validation_confidence": res.Confidence * 100,
		"ai_validation_result":     res.JSON(),
		"ai_validation_date":       time.Now().UTC(),
	}
	if err := s.store.SetSystemFields(ctx, doctype, name, fields); err != nil {
		return nil, s.fail(ctx, doctype, name, err)
	}

	s.logger.Info("validate.ok",
		"doctype", doctype,
		"name", name,
		"status", string(status),
		"confidence", res.Confidence,
		"comparisons", len(res.Details.FieldComparisons),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// fail writes an Error-status outcome best-effort and returns the original
// error wrapped with a readable message.
func (s *Service) fail(ctx context.Context, doctype, name string, cause error) error {
	s.logger.Error("validate.failed", "doctype", doctype, "name", name, "error", cause)

	werr := s.store.SetSystemFields(ctx, doctype, name, map[string]any{
		"ai_validation_status":  string(constants.ValidationError),
		"ai_validation_summary": truncate("Error: "+cause.Error(), s.cfg.SummaryMaxLen),
		"ai_validation_date":    time.Now().UTC(),
	})
	if werr != nil {
		// Never mask the original failure with the fallback write's own.
		s.logger.Error("validate.error_status_write_failed", "doctype", doctype, "name", name, "error", werr)
	}
	return fmt.Errorf("ai validation failed: %w", cause)
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
