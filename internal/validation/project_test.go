package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoice-validator/internal/entity"
	"github.com/invoiceflow/invoice-validator/internal/schema"
)

func testFieldDefs() []schema.FieldDef {
	return []schema.FieldDef{
		{Name: "invoice_number", Kind: schema.KindData},
		{Name: "totals_section", Kind: schema.KindSectionBreak},
		{Name: "total_orders", Kind: schema.KindInt},
		{Name: "total_revenue", Kind: schema.KindCurrency},
		{Name: "supplier_email", Kind: schema.KindData, Default: "rechnung@lieferando.de"},
		{Name: "fee_breakdown", Kind: schema.KindTable},
		{Name: "invoice_pdf", Kind: schema.KindAttach},
		{Name: "raw_text", Kind: schema.KindLongText, Hidden: true},
	}
}

func TestProjectFieldsExclusions(t *testing.T) {
	doc := &entity.Document{
		Doctype: "Lieferando Invoice",
		Name:    "INV-0001",
		Fields: map[string]any{
			"name":           "INV-0001",
			"invoice_number": "DE-2025-091",
			"totals_section": "x",
			"total_orders":   float64(120),
			"total_revenue":  2893.4,
			"invoice_pdf":    "/files/inv.pdf",
			"raw_text":       "secret raw text",
			"not_in_schema":  "ignored",
		},
	}

	got := ProjectFields(doc, testFieldDefs())

	_, hasName := got.Get("name")
	_, hasSection := got.Get("totals_section")
	_, hasAttach := got.Get("invoice_pdf")
	_, hasHidden := got.Get("raw_text")
	_, hasUnknown := got.Get("not_in_schema")
	assert.False(t, hasName, "identity fields never projected")
	assert.False(t, hasSection, "layout fields never projected")
	assert.False(t, hasAttach, "attachments never projected")
	assert.False(t, hasHidden, "hidden fields never projected")
	assert.False(t, hasUnknown, "fields absent from the schema are skipped")

	num, ok := got.Get("invoice_number")
	require.True(t, ok)
	assert.Equal(t, "DE-2025-091", num)

	orders, ok := got.Get("total_orders")
	require.True(t, ok)
	assert.Equal(t, "120", orders)

	revenue, ok := got.Get("total_revenue")
	require.True(t, ok)
	assert.Equal(t, "2893.4", revenue)
}

func TestProjectFieldsOmitsEmpty(t *testing.T) {
	doc := &entity.Document{
		Fields: map[string]any{
			"invoice_number": "",
			"total_orders":   nil,
		},
	}
	got := ProjectFields(doc, testFieldDefs())
	assert.Empty(t, got)
}

func TestProjectFieldsDefaultAnnotation(t *testing.T) {
	doc := &entity.Document{
		Fields: map[string]any{"supplier_email": "rechnung@lieferando.de"},
	}
	got := ProjectFields(doc, testFieldDefs())

	v, ok := got.Get("supplier_email")
	require.True(t, ok)
	assert.Equal(t, "rechnung@lieferando.de"+DefaultMarker, v)

	// A non-default value stays bare.
	doc.Fields["supplier_email"] = "billing@example.com"
	got = ProjectFields(doc, testFieldDefs())
	v, _ = got.Get("supplier_email")
	assert.Equal(t, "billing@example.com", v)
}

func TestProjectFieldsChildTable(t *testing.T) {
	doc := &entity.Document{
		Fields: map[string]any{
			"fee_breakdown": []any{
				map[string]any{
					"fee_type": "Service Fee",
					"amount":   868.02,
					"name":     "row-1",
					"parent":   "INV-0001",
					"idx":      float64(1),
				},
			},
		},
	}
	got := ProjectFields(doc, testFieldDefs())

	v, ok := got.Get("fee_breakdown")
	require.True(t, ok)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(v), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Service Fee", rows[0]["fee_type"])
	assert.NotContains(t, rows[0], "name")
	assert.NotContains(t, rows[0], "parent")
	assert.NotContains(t, rows[0], "idx")
}

func TestProjectedFieldsPreserveOrder(t *testing.T) {
	doc := &entity.Document{
		Fields: map[string]any{
			"total_revenue":  100.0,
			"invoice_number": "A",
			"total_orders":   5,
		},
	}
	got := ProjectFields(doc, testFieldDefs())
	require.Len(t, got, 3)
	assert.Equal(t, "invoice_number", got[0].Name)
	assert.Equal(t, "total_orders", got[1].Name)
	assert.Equal(t, "total_revenue", got[2].Name)

	// Object key order survives marshaling, every time.
	first, err := json.Marshal(got)
	require.NoError(t, err)
	second, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.Index(string(first), "invoice_number") < strings.Index(string(first), "total_revenue"))
}

func TestProjectFieldsIdempotent(t *testing.T) {
	doc := &entity.Document{
		Fields: map[string]any{
			"invoice_number": "DE-2025-091",
			"supplier_email": "rechnung@lieferando.de",
			"total_orders":   float64(120),
		},
	}
	a := ProjectFields(doc, testFieldDefs())
	b := ProjectFields(doc, testFieldDefs())
	assert.Equal(t, a, b)
}
