package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineDocType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want DocType
	}{
		{
			name: "invoice by keywords",
			text: "TAX INVOICE\nInvoice Number: 884\nAmount Due: 1,200.00\nPayment Terms: Net 30",
			want: DocTypeInvoice,
		},
		{
			name: "purchase order by keywords",
			text: "PURCHASE ORDER\nOrder Number: 4452\nShip To: Plant 2\nDelivery Date: 12/05/2025",
			want: DocTypePurchaseOrder,
		},
		{
			name: "tie resolved by invoice number pattern",
			text: "document ref inv no: 12345",
			want: DocTypeInvoice,
		},
		{
			name: "tie resolved by po number pattern",
			text: "ref po num 7788",
			want: DocTypePurchaseOrder,
		},
		{
			name: "no signals",
			text: "quarterly staffing summary",
			want: DocTypeUnknown,
		},
		{
			name: "empty text",
			text: "",
			want: DocTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineDocType(tt.text))
		})
	}
}
