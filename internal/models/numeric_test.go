package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", "118000", "118000", true},
		{"thousands separators", "1,250.00", "1250.00", true},
		{"indian grouping with rupee sign", "₹1,18,000.00", "118000.00", true},
		{"rs prefix", "Rs. 5000", "5000", true},
		{"percent", "18%", "18", true},
		{"negative", "-250.50", "-250.50", true},
		{"not a number", "N/A", "", false},
		{"empty", "", "", false},
		{"symbols only", "₹ ,", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
					"got %s want %s", got, tt.want)
			}
		})
	}
}

func TestParseAmountPtr(t *testing.T) {
	p := ParseAmountPtr("1,250.00")
	require.NotNil(t, p)
	assert.True(t, p.Equal(decimal.RequireFromString("1250.00")))

	assert.Nil(t, ParseAmountPtr("N/A"))
}

func TestRecordDerivedFields(t *testing.T) {
	five := 5
	grnAmount := decimal.NewFromInt(118000)
	record := &PoGrnRecord{
		PONumber:       "PO-1001",
		POAmount:       decimal.NewFromInt(120000),
		NoItemInPO:     5,
		NoItemInGRN:    &five,
		ReceivedStatus: "Received",
		GRNAmount:      &grnAmount,
	}

	variance := record.POGRNVariance()
	require.NotNil(t, variance)
	assert.True(t, variance.Equal(decimal.NewFromInt(2000)))

	itemVar := record.ItemVariance()
	require.NotNil(t, itemVar)
	assert.Equal(t, 0, *itemVar)

	assert.True(t, record.IsFullyReceived())

	record.NoItemInGRN = nil
	record.GRNAmount = nil
	assert.Nil(t, record.POGRNVariance())
	assert.Nil(t, record.ItemVariance())
	assert.False(t, record.IsFullyReceived())
}

func TestAttachmentURLs(t *testing.T) {
	record := &PoGrnRecord{}
	record.Attachments[0] = "https://files.example.com/a.pdf"
	record.Attachments[3] = "  "
	record.Attachments[4] = "https://files.example.com/e.pdf"

	urls := record.AttachmentURLs()
	assert.Equal(t, map[int]string{
		1: "https://files.example.com/a.pdf",
		5: "https://files.example.com/e.pdf",
	}, urls)
}
