package entity

import (
	"fmt"
	"strings"
	"time"
)

// Document is a structured record loaded from the store: a doctype, a name
// (primary key) and a bag of named field values. The validation core reads
// it through the field schema and never mutates it.
type Document struct {
	Doctype       string         `json:"doctype"`
	Name          string         `json:"name"`
	Fields        map[string]any `json:"fields"`
	WorkflowState string         `json:"workflow_state,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Get returns the raw field value, or nil when absent.
func (d *Document) Get(name string) any {
	if d.Fields == nil {
		return nil
	}
	return d.Fields[name]
}

// String returns the field as a trimmed string; non-string scalars are
// formatted with fmt. Absent or nil fields yield "".
func (d *Document) String(name string) string {
	v := d.Get(name)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Float returns the field as a float64 when it is numeric (or a numeric
// string); ok reports whether the conversion succeeded.
func (d *Document) Float(name string) (float64, bool) {
	switch v := d.Get(name).(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
