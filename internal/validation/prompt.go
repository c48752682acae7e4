package validation

import (
	"strings"
)

// BuildSystemPrompt returns the fixed system-role instruction for the
// validation call.
func BuildSystemPrompt() string {
	return "You are an invoice validation expert. You compare PDF text with structured invoice data " +
		"and perform accuracy analysis. Use English for field names and technical terms."
}

// BuildUserPrompt assembles the instruction prompt: the projected fields as
// pretty-printed JSON, the output schema, the comparison rules, and the raw
// reference text truncated to maxReferenceChars. Pure function of its
// inputs.
func BuildUserPrompt(doctype, name string, fields ProjectedFields, referenceText string, maxReferenceChars int) string {
	if maxReferenceChars <= 0 {
		maxReferenceChars = 15000
	}
	if len(referenceText) > maxReferenceChars {
		referenceText = referenceText[:maxReferenceChars]
	}

	var b strings.Builder
	b.WriteString("You are an invoice validation expert. Compare the invoice data in JSON format below with the PDF content and perform accuracy validation.\n\n")
	b.WriteString("Invoice Doctype: ")
	b.WriteString(doctype)
	b.WriteString("\nInvoice Name: ")
	b.WriteString(name)
	b.WriteString("\n\nInvoice data (extracted from the record):\n")
	b.WriteString(fields.PrettyJSON())
	b.WriteString("\n\n")

	b.WriteString(`Task:
1. Analyze the PDF content thoroughly
2. Extract ALL important fields from the PDF (invoice number, dates, amounts, company info, addresses, fees, taxes, etc.)
3. Compare PDF data with record data in BOTH directions:
   a. For each field in the record: Check if it exists in the PDF and if values match
   b. For each important field in the PDF: Check if it exists in the record and if values match
4. Identify missing, incorrect, or mismatched fields:
   - "missing_fields": Fields that exist in the PDF but are NOT in the record (or have no value in the record)
   - "incorrect_fields": Fields that exist in both but have mismatched values
   - "extras_in_pdf": Fields in the PDF that are not expected/standard in the record (informational only)
5. Provide an overall accuracy assessment

IMPORTANT COMPARISON RULES:
- For numerical values (amount, rate, etc.): Perform float comparison. For example, "2.70" and "2.7" or "9.00" and "9.0" should be considered the same. Ignore minor rounding differences (less than 0.01).
- Amount vs Rate/Percentage: ATTENTION! Fields ending with "_amount" are CURRENCY AMOUNTS (e.g., 2.70), fields ending with "_rate" or "_percent" are PERCENTAGES (e.g., 30). Do not confuse them! "admin_fee_amount" is an amount, "service_fee_rate" is a percentage. If the PDF shows "Admin Fee: 0.64" as an amount, compare it with the "_amount" field, not with a percentage.
- For date fields: Format differences are not important (e.g., "14-12-2025" and "2025-12-14" are the same).
- For text fields: Case differences and leading/trailing spaces are not important.
- Default values: If a field value is marked with "` + strings.TrimSpace(DefaultMarker) + `", do NOT add this field to the "missing_fields" list if it's not in the PDF! These are system default values and are not mandatory in the PDF.

Response format (JSON):
{
    "status": "Valid" | "Issues Found" | "Error",
    "confidence": 0.0-1.0 (accuracy confidence - MUST be calculated as: if all fields match=true AND no incorrect_fields AND no missing_fields, then confidence=1.0, otherwise calculate based on match ratio),
    "summary": "Short summary (max 200 characters)",
    "details": {
        "missing_fields": ["field1", "field2"],
        "incorrect_fields": ["field1", "field2"],
        "extras_in_pdf": ["field1", "field2"],
        "field_comparisons": [
            {
                "field": "invoice_number",
                "pdf_value": "...",
                "doctype_value": "...",
                "match": true/false
            }
        ]
    },
    "recommendations": ["recommendation1", "recommendation2"]
}

CRITICAL CONFIDENCE CALCULATION RULES:
- If ALL field_comparisons have match=true AND incorrect_fields is empty AND missing_fields is empty: confidence MUST be 1.0 (100%)
- If any field has match=false, add it to incorrect_fields and calculate confidence based on: (number of match=true fields) / (total number of fields)
- Do NOT reduce confidence for format differences (dates, numbers) if they are logically equivalent
- Do NOT reduce confidence for default values if they match the PDF value

CRITICAL JSON FORMATTING RULES (MUST FOLLOW):
- Use double quotes (") for ALL strings, NEVER single quotes (')
- Escape ALL special characters in strings properly
- Ensure ALL strings are properly closed with closing quotes
- Add commas (,) between ALL JSON object properties and array elements
- Do NOT include trailing commas after the last item in objects or arrays
- Ensure ALL opening braces and brackets have matching closing ones
- Do NOT include any text, explanations, or comments outside the JSON structure
- The response MUST be valid JSON that can be parsed directly without any modifications

IMPORTANT: Provide response in JSON format only, no additional text.

PDF Text (Raw):
`)
	b.WriteString(referenceText)
	b.WriteString("\n")
	return b.String()
}
