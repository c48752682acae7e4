package schema

import "fmt"

// Registry is a static Introspector over the doctypes this service owns.
type Registry struct {
	doctypes map[string][]FieldDef
}

// NewRegistry returns a Registry preloaded with the built-in doctypes.
func NewRegistry() *Registry {
	return &Registry{
		doctypes: map[string][]FieldDef{
			"Lieferando Invoice": lieferandoInvoiceFields,
		},
	}
}

func (r *Registry) Fields(doctype string) ([]FieldDef, error) {
	fields, ok := r.doctypes[doctype]
	if !ok {
		return nil, fmt.Errorf("unknown doctype %q", doctype)
	}
	return fields, nil
}

// Register adds or replaces a doctype schema. Used by tests and by callers
// that carry additional doctypes.
func (r *Registry) Register(doctype string, fields []FieldDef) {
	r.doctypes[doctype] = fields
}

// lieferandoInvoiceFields mirrors the Lieferando Invoice doctype: billing
// period totals, payment splits, fee figures and the raw PDF text the
// validator compares against. Fields ending in _amount hold currency
// amounts; _rate fields hold percentages.
var lieferandoInvoiceFields = []FieldDef{
	{Name: "invoice_number", Kind: KindData},
	{Name: "invoice_date", Kind: KindDate},
	{Name: "period_start", Kind: KindDate},
	{Name: "period_end", Kind: KindDate},

	{Name: "restaurant_section", Kind: KindSectionBreak},
	{Name: "restaurant_name", Kind: KindData},
	{Name: "customer_number", Kind: KindData},
	{Name: "customer_tax_number", Kind: KindData},
	{Name: "supplier_email", Kind: KindData, Default: "rechnung@lieferando.de"},
	{Name: "supplier_phone", Kind: KindData, Default: "+49 30 555 4444"},

	{Name: "totals_section", Kind: KindSectionBreak},
	{Name: "total_orders", Kind: KindInt},
	{Name: "total_revenue", Kind: KindCurrency},
	{Name: "online_paid_orders", Kind: KindInt},
	{Name: "online_paid_amount", Kind: KindCurrency},
	{Name: "cash_paid_orders", Kind: KindInt},
	{Name: "cash_paid_amount", Kind: KindCurrency},

	{Name: "fees_column", Kind: KindColumnBreak},
	{Name: "service_fee_rate", Kind: KindPercent},
	{Name: "cash_service_fee_amount", Kind: KindCurrency},
	{Name: "admin_fee_amount", Kind: KindCurrency},
	{Name: "tips_amount", Kind: KindCurrency},
	{Name: "chargeback_orders", Kind: KindInt},
	{Name: "chargeback_amount", Kind: KindCurrency},
	{Name: "stamp_card_orders", Kind: KindInt},
	{Name: "stamp_card_amount", Kind: KindCurrency},

	{Name: "fee_breakdown", Kind: KindTable},

	{Name: "attachments_section", Kind: KindSectionBreak},
	{Name: "invoice_pdf", Kind: KindAttach},
	{Name: "raw_text", Kind: KindLongText, Hidden: true},
}
