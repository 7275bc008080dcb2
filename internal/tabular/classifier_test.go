package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierDetect(t *testing.T) {
	c := NewClassifier(DefaultIndicators())

	tests := []struct {
		name    string
		columns []string
		want    DataType
	}{
		{
			name: "combined report",
			columns: []string{
				"po_number", "po_amount", "po_status",
				"grn_no", "grn_amount", "received_status",
			},
			want: DataTypeCombined,
		},
		{
			name:    "pure purchase order",
			columns: []string{"po_number", "order_number", "vendor_name"},
			want:    DataTypePurchaseOrder,
		},
		{
			name:    "pure goods receipt",
			columns: []string{"grn_number", "received_quantity", "vendor_name"},
			want:    DataTypeGoodsReceiptNote,
		},
		{
			name:    "tie between po and grn goes to po",
			columns: []string{"po_number", "grn_number"},
			want:    DataTypePurchaseOrder,
		},
		{
			name:    "grn wins on higher count",
			columns: []string{"po_number", "grn_number", "received_quantity"},
			want:    DataTypeGoodsReceiptNote,
		},
		{
			name: "combined indicators without both halves fall through",
			columns: []string{
				"po_amount", "grn_amount", "grn_subtotal", "po_status",
			},
			want: DataTypeUnknown,
		},
		{
			name:    "unrelated columns",
			columns: []string{"employee", "salary", "department"},
			want:    DataTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Detect(tt.columns))
		})
	}
}
