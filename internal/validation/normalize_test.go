package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoice-validator/constants"
	"github.com/invoiceflow/invoice-validator/internal/llm"
)

const validResultJSON = `{
  "status": "Valid",
  "confidence": 1.0,
  "summary": "all fields match",
  "details": {
    "missing_fields": [],
    "incorrect_fields": [],
    "extras_in_pdf": [],
    "field_comparisons": [
      {"field": "invoice_number", "pdf_value": "DE-1", "doctype_value": "DE-1", "match": true}
    ]
  },
  "recommendations": []
}`

// scriptedClient returns canned responses in order and records requests.
type scriptedClient struct {
	responses []string
	errs      []error
	requests  []llm.CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	var out string
	if i < len(c.responses) {
		out = c.responses[i]
	}
	return out, err
}

func TestNormalizeDirectParse(t *testing.T) {
	n := NewNormalizer(nil, nil)
	res, err := n.Normalize(context.Background(), validResultJSON)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationValid, res.Status)
	require.Len(t, res.Details.FieldComparisons, 1)
	assert.True(t, res.Details.FieldComparisons[0].Match)
}

func TestNormalizeFencedWithProse(t *testing.T) {
	n := NewNormalizer(nil, nil)

	bare, err := n.Normalize(context.Background(), validResultJSON)
	require.NoError(t, err)

	wrapped := "Here is the result:\n```json\n" + validResultJSON + "\n```\nLet me know if you need anything else."
	res, err := n.Normalize(context.Background(), wrapped)
	require.NoError(t, err)
	assert.Equal(t, bare, res, "fenced output must normalize identically to the bare JSON")
}

func TestNormalizeGenericFence(t *testing.T) {
	n := NewNormalizer(nil, nil)
	wrapped := "```\n" + validResultJSON + "\n```"
	res, err := n.Normalize(context.Background(), wrapped)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationValid, res.Status)
}

func TestNormalizeTrailingCommaWithoutRemote(t *testing.T) {
	broken := `{
  "status": "Issues Found",
  "confidence": 0.5,
  "summary": "mismatch",
  "details": {
    "missing_fields": ["invoice_date"],
    "incorrect_fields": [],
    "extras_in_pdf": [],
    "field_comparisons": [],
  },
  "recommendations": [],
}`
	client := &scriptedClient{}
	n := NewNormalizer(client, nil)

	res, err := n.Normalize(context.Background(), broken)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationIssues, res.Status)
	assert.Empty(t, client.requests, "local repair must not trigger a remote call")
}

func TestNormalizeRemoteRepair(t *testing.T) {
	// Missing comma between members defeats every local repair.
	broken := `{"status": "Valid" "confidence": 1.0, "summary": "x", "details": {}}`
	client := &scriptedClient{responses: []string{validResultJSON}}
	n := NewNormalizer(client, nil)

	res, err := n.Normalize(context.Background(), broken)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationValid, res.Status)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.True(t, req.JSONMode)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	assert.Contains(t, req.User, broken)
	assert.Contains(t, req.System, "JSON-only")
}

func TestNormalizeRemoteRepairSeedCapped(t *testing.T) {
	long := `{"status": "Valid" "summary": "` + string(make([]byte, 5000)) + `"}`
	client := &scriptedClient{responses: []string{validResultJSON}}
	n := NewNormalizer(client, nil)

	_, err := n.Normalize(context.Background(), long)
	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	assert.LessOrEqual(t, len(client.requests[0].User), 2200, "broken seed is capped before embedding")
}

func TestNormalizeExhaustionNoBraces(t *testing.T) {
	n := NewNormalizer(nil, nil)

	_, err := n.Normalize(context.Background(), "I could not produce a result, sorry.")
	require.Error(t, err)

	var ne *NormalizationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, int64(-1), ne.Offset)
	assert.NotEmpty(t, ne.Raw)
}

func TestNormalizeExhaustionSyntaxDiagnostics(t *testing.T) {
	broken := "{\n  \"status\": ,\n}"
	client := &scriptedClient{errs: []error{errors.New("model unavailable")}}
	n := NewNormalizer(client, nil)

	_, err := n.Normalize(context.Background(), broken)
	require.Error(t, err)

	var ne *NormalizationError
	require.ErrorAs(t, err, &ne)
	assert.Greater(t, ne.Offset, int64(0))
	assert.Contains(t, ne.Line, `"status"`)
	assert.Len(t, client.requests, 1, "remote repair was attempted once")
}

func TestNormalizeDiagnosticsTruncated(t *testing.T) {
	big := make([]byte, 12000)
	for i := range big {
		big[i] = 'a'
	}
	raw := "{" + string(big) // unterminated, unparseable
	n := NewNormalizer(nil, nil)

	_, err := n.Normalize(context.Background(), raw)
	var ne *NormalizationError
	require.ErrorAs(t, err, &ne)
	assert.Less(t, len(ne.Raw), len(raw))
	assert.Contains(t, ne.Raw, "…")
}
