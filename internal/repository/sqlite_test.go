package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/entity"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedInvoice(t *testing.T, s *SQLiteStore, name string) {
	t.Helper()
	err := s.Put(context.Background(), &entity.Document{
		Doctype: "Lieferando Invoice",
		Name:    name,
		Fields: map[string]any{
			"invoice_number": "DE-2025-091",
			"total_orders":   float64(120),
			"raw_text":       "Rechnung DE-2025-091",
		},
		WorkflowState: "Approved",
	})
	require.NoError(t, err)
}

func TestSQLitePutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedInvoice(t, s, "INV-0001")

	doc, err := s.Get(context.Background(), "Lieferando Invoice", "INV-0001")
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", doc.Name)
	assert.Equal(t, "DE-2025-091", doc.String("invoice_number"))
	assert.Equal(t, "Rechnung DE-2025-091", doc.String("raw_text"), "raw_text column is merged back into the field bag")
	assert.Equal(t, "Approved", doc.WorkflowState)

	orders, ok := doc.Float("total_orders")
	require.True(t, ok)
	assert.Equal(t, 120.0, orders)
}

func TestSQLiteGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "Lieferando Invoice", "NOPE")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteList(t *testing.T) {
	s := openTestStore(t)
	seedInvoice(t, s, "INV-0001")
	seedInvoice(t, s, "INV-0002")

	names, err := s.List(context.Background(), "Lieferando Invoice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"INV-0001", "INV-0002"}, names)

	empty, err := s.List(context.Background(), "Other Doctype")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteSetSystemFields(t *testing.T) {
	s := openTestStore(t)
	seedInvoice(t, s, "INV-0001")

	before, err := s.Get(context.Background(), "Lieferando Invoice", "INV-0001")
	require.NoError(t, err)

	err = s.SetSystemFields(context.Background(), "Lieferando Invoice", "INV-0001", map[string]any{
		"ai_validation_status":     "Valid",
		"ai_validation_summary":    "all good",
		"ai_validation_confidence": 100.0,
		"ai_validation_result":     `{"status":"Valid"}`,
		"ai_validation_date":       time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		"stamp_card_orders":        3, // non-column field merges into data
	})
	require.NoError(t, err)

	after, err := s.Get(context.Background(), "Lieferando Invoice", "INV-0001")
	require.NoError(t, err)

	assert.Equal(t, "Valid", after.String("ai_validation_status"))
	assert.Equal(t, "all good", after.String("ai_validation_summary"))
	conf, ok := after.Float("ai_validation_confidence")
	require.True(t, ok)
	assert.Equal(t, 100.0, conf)
	assert.Equal(t, `{"status":"Valid"}`, after.String("ai_validation_result"))
	assert.Contains(t, after.String("ai_validation_date"), "2026-08-28")

	orders, ok := after.Float("stamp_card_orders")
	require.True(t, ok)
	assert.Equal(t, 3.0, orders)

	// Existing data fields survive the merge and the system write leaves
	// updated_at and workflow_state alone.
	assert.Equal(t, "DE-2025-091", after.String("invoice_number"))
	assert.Equal(t, "Approved", after.WorkflowState)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestSQLiteSetSystemFieldsNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.SetSystemFields(context.Background(), "Lieferando Invoice", "NOPE", map[string]any{
		"ai_validation_status": "Error",
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLitePutUpsert(t *testing.T) {
	s := openTestStore(t)
	seedInvoice(t, s, "INV-0001")

	err := s.Put(context.Background(), &entity.Document{
		Doctype: "Lieferando Invoice",
		Name:    "INV-0001",
		Fields:  map[string]any{"invoice_number": "DE-2025-092"},
	})
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), "Lieferando Invoice", "INV-0001")
	require.NoError(t, err)
	assert.Equal(t, "DE-2025-092", doc.String("invoice_number"))
	assert.Empty(t, doc.String("raw_text"))
}

func TestSplitSystemFields(t *testing.T) {
	columns, data := splitSystemFields(map[string]any{
		"ai_validation_status": "Valid",
		"ai_validation_date":   "2026-08-28",
		"stamp_card_orders":    3,
		"workflow_state":       "Approved",
	})
	assert.Len(t, columns, 2)
	assert.Contains(t, columns, "ai_validation_status")
	assert.Contains(t, columns, "ai_validation_date")
	assert.Len(t, data, 2)
	assert.Contains(t, data, "stamp_card_orders")
	assert.Contains(t, data, "workflow_state")
}
