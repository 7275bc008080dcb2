package invoice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtraction(t *testing.T) {
	t.Run("strips json code fence", func(t *testing.T) {
		raw := "```json\n{\"invoice_number\": \"INV-884\"}\n```"

		result, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, FlexString("INV-884"), result.InvoiceNumber)
	})

	t.Run("strips bare fence", func(t *testing.T) {
		raw := "```\n{\"grand_total\": \"118000\"}\n```"

		result, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, FlexString("118000"), result.GrandTotal)
	})

	t.Run("unknown keys dropped, nested keys merged", func(t *testing.T) {
		raw := `{
			"invoice_number": "INV-1",
			"hallucinated_field": "x",
			"seller": {"name": "Shree Traders", "fax": "n/a"},
			"taxes": {"cgst": "9000"}
		}`

		result, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, FlexString("Shree Traders"), result.Seller.Name)
		assert.Equal(t, FlexString(""), result.Seller.GSTIN)
		assert.Equal(t, FlexString("9000"), result.Taxes.CGST)
		assert.Equal(t, FlexString(""), result.Taxes.SGST)
	})

	t.Run("numbers accepted for string fields", func(t *testing.T) {
		raw := `{"grand_total": 118000.50, "items": [{"quantity": 5, "rate": 100}]}`

		result, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, FlexString("118000.50"), result.GrandTotal)
		require.Len(t, result.Items, 1)
		assert.Equal(t, FlexString("5"), result.Items[0].Quantity)
	})

	t.Run("null becomes empty string", func(t *testing.T) {
		raw := `{"invoice_date": null}`

		result, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, FlexString(""), result.InvoiceDate)
	})

	t.Run("prose response fails", func(t *testing.T) {
		_, err := ParseExtraction("I could not find an invoice in this document.")
		assert.ErrorIs(t, err, ErrMalformedExtraction)
	})

	t.Run("empty response fails", func(t *testing.T) {
		_, err := ParseExtraction("```json\n```")
		assert.ErrorIs(t, err, ErrMalformedExtraction)
	})
}

func TestSchemaJSON(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(SchemaJSON()), &doc))

	assert.Contains(t, doc, "invoice_number")
	assert.Contains(t, doc, "seller")
	assert.Contains(t, doc, "taxes")
	assert.Contains(t, doc, "bank_details")

	items, ok := doc["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
}
