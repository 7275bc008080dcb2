package tabular

// Field pairs a canonical column name with its accepted header
// variants, ordered by priority.
type Field struct {
	Name    string
	Aliases []string
}

// Catalog maps arbitrary spreadsheet headers to canonical field names
// using a many-to-one alias catalog. Catalogs are immutable once built.
type Catalog struct {
	fields []Field
}

// NewCatalog builds a catalog from an ordered field list.
func NewCatalog(fields []Field) *Catalog {
	return &Catalog{fields: fields}
}

// Map returns a mapping from actual column name to canonical name.
// For each canonical field the alias list is scanned in priority order
// and the first alias present in columns wins; remaining aliases are
// ignored. A field with no alias present is simply absent from the
// result.
func (c *Catalog) Map(columns []string) map[string]string {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	columnMap := make(map[string]string)
	for _, f := range c.fields {
		for _, alias := range f.Aliases {
			if present[alias] {
				columnMap[alias] = f.Name
				break
			}
		}
	}
	return columnMap
}

// POCatalog returns the alias catalog for purchase-order sheets.
func POCatalog() *Catalog {
	return NewCatalog([]Field{
		{"po_number", []string{"po_number", "po_no", "po no.", "purchase_order_number", "order_number"}},
		{"po_date", []string{"po_date", "po_creation_date", "order_date", "purchase_date", "date"}},
		{"vendor_name", []string{"vendor_name", "vendor", "supplier_name", "supplier"}},
		{"vendor_code", []string{"vendor_code", "vendor_id", "supplier_code", "supplier_id"}},
		{"item_code", []string{"item_code", "item_id", "product_code", "sku"}},
		{"item_description", []string{"item_description", "description", "product_name", "item_name"}},
		{"quantity", []string{"quantity", "qty", "ordered_qty", "order_quantity", "no_item_in_po"}},
		{"unit", []string{"unit", "uom", "unit_of_measure"}},
		{"rate", []string{"rate", "unit_price", "price", "cost"}},
		{"amount", []string{"amount", "total", "line_total", "total_amount", "po_amount"}},
		{"delivery_date", []string{"delivery_date", "expected_date", "due_date"}},
		{"status", []string{"status", "po_status", "order_status"}},
		{"location", []string{"location", "site", "branch", "warehouse"}},
		{"concerned_person", []string{"concerned_person", "contact_person", "buyer"}},
	})
}

// GRNCatalog returns the alias catalog for goods-receipt-note sheets.
func GRNCatalog() *Catalog {
	return NewCatalog([]Field{
		{"grn_number", []string{"grn_number", "grn_no", "grn no.", "receipt_number", "goods_receipt_no"}},
		{"grn_date", []string{"grn_date", "grn_creation_date", "receipt_date", "received_date", "date"}},
		{"po_number", []string{"po_number", "po_no", "po no.", "purchase_order_number", "reference_po"}},
		{"vendor_name", []string{"vendor_name", "vendor", "supplier_name", "supplier"}},
		{"item_code", []string{"item_code", "item_id", "product_code", "sku"}},
		{"item_description", []string{"item_description", "description", "product_name", "item_name"}},
		{"received_quantity", []string{"received_quantity", "received_qty", "qty_received", "quantity", "no_item_in_grn"}},
		{"accepted_quantity", []string{"accepted_quantity", "accepted_qty", "qty_accepted"}},
		{"rejected_quantity", []string{"rejected_quantity", "rejected_qty", "qty_rejected"}},
		{"unit", []string{"unit", "uom", "unit_of_measure"}},
		{"rate", []string{"rate", "unit_price", "price", "cost"}},
		{"amount", []string{"amount", "total", "line_total", "total_amount", "grn_amount"}},
		{"subtotal", []string{"subtotal", "grn_subtotal", "net_amount"}},
		{"tax", []string{"tax", "grn_tax", "tax_amount", "gst"}},
		{"batch_number", []string{"batch_number", "batch_no", "lot_number"}},
		{"expiry_date", []string{"expiry_date", "exp_date", "expiration_date"}},
		{"inspector", []string{"inspector", "checked_by", "quality_inspector"}},
		{"remarks", []string{"remarks", "comments", "notes"}},
		{"received_status", []string{"received_status", "status", "grn_status"}},
		{"location", []string{"location", "site", "branch", "warehouse"}},
	})
}

// CombinedCatalog returns the alias catalog for combined PO-GRN
// reconciliation reports.
func CombinedCatalog() *Catalog {
	return NewCatalog([]Field{
		{"s_no", []string{"s.no.", "s_no", "serial_number", "sr_no"}},
		{"location", []string{"location", "site", "branch", "warehouse"}},
		{"po_number", []string{"po no.", "po_number", "po_no", "purchase_order_number"}},
		{"po_creation_date", []string{"po_creation_date", "po_date", "order_date"}},
		{"no_item_in_po", []string{"no_item_in_po", "po_items", "po_line_count"}},
		{"po_amount", []string{"po_amount", "po_total", "order_amount"}},
		{"po_status", []string{"po_status", "order_status", "po_state"}},
		{"supplier_name", []string{"supplier_name", "vendor_name", "vendor"}},
		{"concerned_person", []string{"concerned person", "concerned_person", "contact_person"}},
		{"grn_no", []string{"grn_no", "grn_number", "receipt_number"}},
		{"grn_creation_date", []string{"grn_creation_date", "grn_date", "receipt_date"}},
		{"no_item_in_grn", []string{"no_item_in_grn", "grn_items", "grn_line_count"}},
		{"received_status", []string{"received status", "received_status", "grn_status"}},
		{"grn_subtotal", []string{"grn_subtotal", "subtotal", "net_amount"}},
		{"grn_tax", []string{"grn_tax", "tax_amount", "gst"}},
		{"grn_amount", []string{"grn_amount", "grn_total", "receipt_amount"}},
	})
}
