package validation

import (
	"encoding/json"

	"github.com/invoiceflow/invoice-validator/constants"
)

// FieldComparison is one per-field verdict from the model.
type FieldComparison struct {
	Field        string `json:"field"`
	PDFValue     string `json:"pdf_value"`
	DoctypeValue string `json:"doctype_value"`
	Match        bool   `json:"match"`
}

// Details groups the three name-sets and the comparison list.
type Details struct {
	MissingFields    []string          `json:"missing_fields"`
	IncorrectFields  []string          `json:"incorrect_fields"`
	ExtrasInPDF      []string          `json:"extras_in_pdf"`
	FieldComparisons []FieldComparison `json:"field_comparisons"`
}

// Result is the normalized outcome of one validation run. It is created
// fresh per invocation and persisted wholesale; nothing mutates it after
// EnforceConfidenceRule.
type Result struct {
	Status          constants.ValidationStatus `json:"status"`
	Confidence      float64                    `json:"confidence"`
	Summary         string                     `json:"summary"`
	Details         Details                    `json:"details"`
	Recommendations []string                   `json:"recommendations"`
}

// EnforceConfidenceRule recomputes confidence from the comparison list
// instead of trusting the model's arithmetic. It is 1.0 exactly when both
// name-sets are empty and every comparison matches; otherwise the ratio of
// matched comparisons over all judged fields, where a missing or incorrect
// field without its own comparison entry counts as one failed comparison.
func (r *Result) EnforceConfidenceRule() {
	matched := 0
	compared := make(map[string]struct{}, len(r.Details.FieldComparisons))
	for _, fc := range r.Details.FieldComparisons {
		compared[fc.Field] = struct{}{}
		if fc.Match {
			matched++
		}
	}
	total := len(r.Details.FieldComparisons)

	if len(r.Details.MissingFields) == 0 && len(r.Details.IncorrectFields) == 0 && matched == total {
		r.Confidence = 1.0
		return
	}
	for _, name := range r.Details.MissingFields {
		if _, ok := compared[name]; !ok {
			total++
		}
	}
	for _, name := range r.Details.IncorrectFields {
		if _, ok := compared[name]; !ok {
			total++
		}
	}
	if total == 0 {
		r.Confidence = 0
		return
	}
	r.Confidence = float64(matched) / float64(total)
}

// JSON renders the result as indented JSON for persistence.
func (r *Result) JSON() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
