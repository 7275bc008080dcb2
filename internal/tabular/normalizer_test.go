package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogMap(t *testing.T) {
	t.Run("first alias wins", func(t *testing.T) {
		catalog := NewCatalog([]Field{
			{"po_number", []string{"po_number", "po_no", "order_number"}},
		})

		m := catalog.Map([]string{"po_no", "order_number"})

		assert.Equal(t, map[string]string{"po_no": "po_number"}, m)
	})

	t.Run("absent field omitted", func(t *testing.T) {
		catalog := NewCatalog([]Field{
			{"vendor_name", []string{"vendor_name", "supplier"}},
			{"amount", []string{"amount", "total"}},
		})

		m := catalog.Map([]string{"total", "unrelated"})

		assert.Equal(t, map[string]string{"total": "amount"}, m)
		assert.NotContains(t, m, "unrelated")
	})

	t.Run("combined catalog maps report headers", func(t *testing.T) {
		columns := []string{
			"s_no", "location", "po_number", "po_creation_date",
			"no_item_in_po", "po_amount", "po_status", "supplier_name",
			"grn_no", "grn_creation_date", "no_item_in_grn",
			"received_status", "grn_subtotal", "grn_tax", "grn_amount",
		}

		m := CombinedCatalog().Map(columns)

		assert.Equal(t, "po_number", m["po_number"])
		assert.Equal(t, "grn_no", m["grn_no"])
		assert.Equal(t, "supplier_name", m["supplier_name"])
		assert.Equal(t, "grn_amount", m["grn_amount"])
		assert.Len(t, m, 15)
	})
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  PO Number ", "po_number"},
		{"GRN-Creation-Date", "grn_creation_date"},
		{"Supplier Name", "supplier_name"},
		{"already_normal", "already_normal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.in))
	}
}
