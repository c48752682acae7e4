package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResultJSON(t *testing.T) {
	require.NoError(t, ValidateResultJSON([]byte(validResultJSON)))
}

func TestValidateResultJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "unknown status value",
			json: `{"status":"Maybe","confidence":0.5,"summary":"x","details":{}}`,
		},
		{
			name: "confidence above one",
			json: `{"status":"Valid","confidence":1.5,"summary":"x","details":{}}`,
		},
		{
			name: "missing summary",
			json: `{"status":"Valid","confidence":1.0,"details":{}}`,
		},
		{
			name: "comparison without field name",
			json: `{"status":"Valid","confidence":1.0,"summary":"x","details":{"field_comparisons":[{"match":true}]}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateResultJSON([]byte(tt.json)))
		})
	}
}
