package constants

// ValidationStatus is the canonical outcome of an AI validation run.
type ValidationStatus string

// Stable values (store these exact strings in DB; they also appear verbatim
// in the model's output schema).
const (
	ValidationValid  ValidationStatus = "Valid"
	ValidationIssues ValidationStatus = "Issues Found"
	ValidationError  ValidationStatus = "Error"
)

// Doctypes known to the validator.
const (
	DoctypeLieferandoInvoice = "Lieferando Invoice"
)

// SummaryMaxLen caps the persisted validation summary.
const SummaryMaxLen = 200

// MaxReferenceChars caps how much raw PDF text is embedded in a prompt.
const MaxReferenceChars = 15000
