package tabular

// DataType identifies the schema a sheet holds.
type DataType string

const (
	DataTypePurchaseOrder    DataType = "purchase_order"
	DataTypeGoodsReceiptNote DataType = "goods_receipt_note"
	DataTypeCombined         DataType = "combined_po_grn"
	DataTypeUnknown          DataType = "unknown"
)

// IndicatorSets holds the column tokens that point at each schema.
type IndicatorSets struct {
	PO       []string
	GRN      []string
	Combined []string
}

// DefaultIndicators returns the indicator sets used in production.
func DefaultIndicators() IndicatorSets {
	return IndicatorSets{
		PO:       []string{"po_number", "po_no", "purchase_order_number", "order_number", "po_creation_date"},
		GRN:      []string{"grn_number", "grn_no", "receipt_number", "goods_receipt_no", "received_quantity", "grn_creation_date"},
		Combined: []string{"po_amount", "grn_amount", "grn_subtotal", "grn_tax", "po_status", "received_status"},
	}
}

// Classifier decides whether a sheet holds PO rows, GRN rows, a
// combined PO+GRN report, or unknown tabular data.
type Classifier struct {
	indicators IndicatorSets
}

// NewClassifier creates a classifier over the given indicator sets.
func NewClassifier(indicators IndicatorSets) *Classifier {
	return &Classifier{indicators: indicators}
}

// Detect classifies a set of normalized column names.
//
// Combined wins whenever at least 3 combined indicators are present
// together with evidence for both halves. In the fallback, GRN beats
// PO on equal counts because of the strict `>` comparison order; this
// asymmetry is intentional and load-bearing for ambiguous reports.
func (c *Classifier) Detect(columns []string) DataType {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	count := func(tokens []string) int {
		n := 0
		for _, tok := range tokens {
			if present[tok] {
				n++
			}
		}
		return n
	}

	poMatches := count(c.indicators.PO)
	grnMatches := count(c.indicators.GRN)
	combinedMatches := count(c.indicators.Combined)

	switch {
	case combinedMatches >= 3 && poMatches > 0 && grnMatches > 0:
		return DataTypeCombined
	case grnMatches > poMatches:
		return DataTypeGoodsReceiptNote
	case poMatches > 0:
		return DataTypePurchaseOrder
	default:
		return DataTypeUnknown
	}
}
