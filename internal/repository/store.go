package repository

import (
	"context"

	"github.com/invoiceflow/invoice-validator/internal/entity"
)

// DocumentStore is the record-store contract the validation pipeline
// depends on.
//
// SetSystemFields is a deliberate side channel: it updates the named fields
// in one statement, bypassing workflow-state checks and leaving updated_at
// untouched, so a validation outcome can land on a record that is already in
// a finalized workflow state. It is the only write path the validator uses,
// which keeps the override visible and auditable.
type DocumentStore interface {
	Get(ctx context.Context, doctype, name string) (*entity.Document, error)
	List(ctx context.Context, doctype string) ([]string, error)
	SetSystemFields(ctx context.Context, doctype, name string, fields map[string]any) error
}

// validationColumns are the system-write targets stored as real columns;
// every other field name is merged into the data document.
var validationColumns = map[string]struct{}{
	"ai_validation_status":     {},
	"ai_validation_summary":    {},
	"ai_validation_confidence": {},
	"ai_validation_result":     {},
	"ai_validation_date":       {},
}

func splitSystemFields(fields map[string]any) (columns map[string]any, data map[string]any) {
	columns = make(map[string]any)
	data = make(map[string]any)
	for k, v := range fields {
		if _, ok := validationColumns[k]; ok {
			columns[k] = v
		} else {
			data[k] = v
		}
	}
	return columns, data
}
