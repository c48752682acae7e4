package schema

// FieldKind classifies a doctype field for projection and comparison.
type FieldKind string

const (
	KindData     FieldKind = "Data"
	KindLongText FieldKind = "Long Text"
	KindDate     FieldKind = "Date"
	KindInt      FieldKind = "Int"
	KindFloat    FieldKind = "Float"
	KindCurrency FieldKind = "Currency"
	KindPercent  FieldKind = "Percent"
	KindTable    FieldKind = "Table"
	KindAttach   FieldKind = "Attach"

	// Layout-only kinds; carry no data and are skipped by projection.
	KindSectionBreak FieldKind = "Section Break"
	KindColumnBreak  FieldKind = "Column Break"
	KindTabBreak     FieldKind = "Tab Break"
)

// Layout reports whether the kind is a structural break with no value.
func (k FieldKind) Layout() bool {
	switch k {
	case KindSectionBreak, KindColumnBreak, KindTabBreak:
		return true
	}
	return false
}

// FieldDef describes one field of a doctype.
type FieldDef struct {
	Name    string
	Kind    FieldKind
	Hidden  bool
	Default string // declared default value, "" when none
}

// Introspector resolves the field schema for a doctype.
type Introspector interface {
	Fields(doctype string) ([]FieldDef, error)
}
