package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFields(t *testing.T) {
	r := NewRegistry()

	fields, err := r.Fields("Lieferando Invoice")
	require.NoError(t, err)
	require.NotEmpty(t, fields)

	byName := map[string]FieldDef{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	assert.Contains(t, byName, "invoice_number")
	assert.Contains(t, byName, "stamp_card_orders")
	assert.True(t, byName["raw_text"].Hidden)
	assert.Equal(t, "rechnung@lieferando.de", byName["supplier_email"].Default)

	_, err = r.Fields("Unknown Doctype")
	assert.Error(t, err)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("Test Doc", []FieldDef{{Name: "x", Kind: KindData}})

	fields, err := r.Fields("Test Doc")
	require.NoError(t, err)
	assert.Len(t, fields, 1)
}

func TestLayoutKinds(t *testing.T) {
	assert.True(t, KindSectionBreak.Layout())
	assert.True(t, KindColumnBreak.Layout())
	assert.True(t, KindTabBreak.Layout())
	assert.False(t, KindData.Layout())
	assert.False(t, KindTable.Layout())
}
