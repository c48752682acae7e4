package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/entity"
)

// InvoiceStore is the Postgres-backed DocumentStore over the invoices table.
type InvoiceStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewInvoiceStore(pool *pgxpool.Pool, logger *slog.Logger) *InvoiceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceStore{pool: pool, logger: logger}
}

func (s *InvoiceStore) Get(ctx context.Context, doctype, name string) (*entity.Document, error) {
	var (
		data          []byte
		rawText       *string
		workflowState *string
		updatedAt     time.Time
		vStatus       *string
		vSummary      *string
		vConfidence   *float64
		vResult       *string
		vDate         *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, raw_text, workflow_state, updated_at,
		        ai_validation_status, ai_validation_summary, ai_validation_confidence,
		        ai_validation_result, ai_validation_date
		 FROM invoices WHERE doctype = $1 AND name = $2`,
		doctype, name,
	).Scan(&data, &rawText, &workflowState, &updatedAt,
		&vStatus, &vSummary, &vConfidence, &vResult, &vDate)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%s %s: %w", doctype, name, common.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("store.get_failed", "doctype", doctype, "name", name, "error", err)
		return nil, common.WrapError(err, "load document")
	}

	doc := &entity.Document{Doctype: doctype, Name: name, UpdatedAt: updatedAt}
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return nil, common.WrapError(err, "decode document data")
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	if rawText != nil {
		doc.Fields["raw_text"] = *rawText
	}
	if vStatus != nil {
		doc.Fields["ai_validation_status"] = *vStatus
	}
	if vSummary != nil {
		doc.Fields["ai_validation_summary"] = *vSummary
	}
	if vConfidence != nil {
		doc.Fields["ai_validation_confidence"] = *vConfidence
	}
	if vResult != nil {
		doc.Fields["ai_validation_result"] = *vResult
	}
	if vDate != nil {
		doc.Fields["ai_validation_date"] = vDate.UTC().Format(time.RFC3339)
	}
	if workflowState != nil {
		doc.WorkflowState = *workflowState
	}
	return doc, nil
}

func (s *InvoiceStore) List(ctx context.Context, doctype string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM invoices WHERE doctype = $1 ORDER BY created_at DESC`, doctype)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SetSystemFields writes validation columns and merges any remaining fields
// into the data document. The statement ignores workflow_state and does not
// touch updated_at.
func (s *InvoiceStore) SetSystemFields(ctx context.Context, doctype, name string, fields map[string]any) error {
	columns, data := splitSystemFields(fields)
	if len(columns) == 0 && len(data) == 0 {
		return nil
	}

	sets := make([]string, 0, len(columns)+1)
	args := []any{doctype, name}
	for col, v := range columns {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(data) > 0 {
		patch, err := json.Marshal(data)
		if err != nil {
			return common.WrapError(err, "encode data patch")
		}
		args = append(args, patch)
		sets = append(sets, fmt.Sprintf("data = data || $%d::jsonb", len(args)))
	}

	query := fmt.Sprintf(`UPDATE invoices SET %s WHERE doctype = $1 AND name = $2`, strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("store.system_write_failed", "doctype", doctype, "name", name, "error", err)
		return common.WrapError(err, "system write")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", doctype, name, common.ErrNotFound)
	}
	return nil
}

// Put inserts or replaces a document. Used by ingestion tooling and tests;
// the validation pipeline itself never creates records.
func (s *InvoiceStore) Put(ctx context.Context, doc *entity.Document) error {
	fields := make(map[string]any, len(doc.Fields))
	var rawText *string
	for k, v := range doc.Fields {
		if k == "raw_text" {
			if sv, ok := v.(string); ok {
				rawText = &sv
				continue
			}
		}
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return common.WrapError(err, "encode document data")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO invoices (name, doctype, data, raw_text, workflow_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data, raw_text = EXCLUDED.raw_text,
		    workflow_state = EXCLUDED.workflow_state, updated_at = now()`,
		doc.Name, doc.Doctype, data, rawText, nullIfEmpty(doc.WorkflowState))
	return common.WrapError(err, "put document")
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
