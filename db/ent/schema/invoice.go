package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
)

// Invoice maps the invoices table the validator reads and writes. The
// document body lives in a jsonb column keyed by field name; validation
// outcome columns are first-class so reports can filter on them.
type Invoice struct{ ent.Schema }

func (Invoice) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "invoices"},
	}
}

func (Invoice) Fields() []ent.Field {
	return []ent.Field{
		field.String("name").
			Immutable().
			Unique().
			StorageKey("name"),
		field.String("doctype").NotEmpty(),
		field.JSON("data", map[string]any{}).
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Text("raw_text").Optional().Nillable(),
		field.String("workflow_state").Optional().Nillable(),
		field.String("ai_validation_status").Optional().Nillable(),
		field.String("ai_validation_summary").Optional().Nillable(),
		field.Float("ai_validation_confidence").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(5,2)"}),
		field.Text("ai_validation_result").Optional().Nillable(),
		field.Time("ai_validation_date").Optional().Nillable(),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}
