package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/invoiceflow/invoice-validator/internal/entity"
	"github.com/invoiceflow/invoice-validator/internal/schema"
)

// DefaultMarker annotates a projected value that equals the field's declared
// default. The prompt's comparison rules reference this exact text, so the
// model knows not to report such fields missing from the PDF.
const DefaultMarker = " (default - may not be in PDF)"

// identityFields never reach a prompt, whatever the schema says.
var identityFields = map[string]struct{}{
	"name": {}, "doctype": {}, "owner": {},
	"creation": {}, "modified": {}, "modified_by": {},
}

// childMetaFields are stripped from child-table rows before serialization.
var childMetaFields = map[string]struct{}{
	"name": {}, "doctype": {}, "owner": {},
	"creation": {}, "modified": {}, "modified_by": {},
	"parent": {}, "parenttype": {}, "parentfield": {}, "idx": {},
}

// ProjectedField is one field-name → display-value pair.
type ProjectedField struct {
	Name  string
	Value string
}

// ProjectedFields preserves schema order; a plain map would not.
type ProjectedFields []ProjectedField

// MarshalJSON renders the pairs as a JSON object in slice order.
func (p ProjectedFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PrettyJSON renders the ordered object indented for prompt embedding.
func (p ProjectedFields) PrettyJSON() string {
	compact, err := p.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return string(compact)
	}
	return buf.String()
}

// Get returns the projected value for a field name.
func (p ProjectedFields) Get(name string) (string, bool) {
	for _, f := range p {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// ProjectFields flattens a document into prompt-ready name/value pairs:
//   - identity/audit, layout, attachment and hidden fields are excluded;
//   - nil and empty-string values are omitted;
//   - a value equal to the field's declared default is annotated with
//     DefaultMarker instead of emitted bare;
//   - child-table rows are serialized without their meta keys and the list
//     is encoded as a JSON string;
//   - any other map/list value is encoded as a JSON string;
//   - scalars are stringified directly.
//
// Fields absent from the schema are skipped silently. The projection is a
// pure function of the document and schema, so it is idempotent.
func ProjectFields(doc *entity.Document, fields []schema.FieldDef) ProjectedFields {
	out := make(ProjectedFields, 0, len(fields))
	for _, fd := range fields {
		if _, skip := identityFields[fd.Name]; skip {
			continue
		}
		if fd.Kind.Layout() || fd.Kind == schema.KindAttach || fd.Hidden {
			continue
		}

		value := doc.Get(fd.Name)
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}

		switch {
		case fd.Default != "" && stringify(value) == fd.Default:
			out = append(out, ProjectedField{fd.Name, stringify(value) + DefaultMarker})
		case fd.Kind == schema.KindTable:
			out = append(out, ProjectedField{fd.Name, serializeChildRows(value)})
		default:
			switch value.(type) {
			case map[string]any, []any:
				out = append(out, ProjectedField{fd.Name, toJSONString(value)})
			default:
				out = append(out, ProjectedField{fd.Name, stringify(value)})
			}
		}
	}
	return out
}

func serializeChildRows(value any) string {
	rows, ok := value.([]any)
	if !ok {
		return stringify(value)
	}
	cleaned := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		clean := make(map[string]any, len(m))
		for k, v := range m {
			if _, meta := childMetaFields[k]; meta {
				continue
			}
			clean[k] = v
		}
		cleaned = append(cleaned, clean)
	}
	return toJSONString(cleaned)
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return stringify(v)
	}
	return string(b)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
