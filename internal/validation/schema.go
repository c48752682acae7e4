package validation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResultJSONSchema returns the JSON-Schema (draft 2020-12 subset) the model
// output must satisfy, as a generic map. The same shape is stated verbatim in
// the prompt; this copy backs local validation.
func ResultJSONSchema() map[string]any {
	comparison := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field":         map[string]any{"type": "string", "minLength": 1},
			"pdf_value":     map[string]any{"type": "string"},
			"doctype_value": map[string]any{"type": "string"},
			"match":         map[string]any{"type": "boolean"},
		},
		"required": []string{"field", "match"},
	}
	stringList := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type": "string",
				"enum": []string{"Valid", "Issues Found", "Error"},
			},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"summary":    map[string]any{"type": "string"},
			"details": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"missing_fields":    stringList,
					"incorrect_fields":  stringList,
					"extras_in_pdf":     stringList,
					"field_comparisons": map[string]any{"type": "array", "items": comparison},
				},
			},
			"recommendations": stringList,
		},
		"required": []string{"status", "confidence", "summary", "details"},
	}
}

// ValidateResultJSON validates "data" against ResultJSONSchema.
func ValidateResultJSON(data []byte) error {
	b, err := json.Marshal(ResultJSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("validation_result.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("validation_result.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
