package document

import (
	"regexp"
	"strings"
)

// DocType distinguishes purchase orders from invoices by their text.
type DocType string

const (
	DocTypePurchaseOrder DocType = "po"
	DocTypeInvoice       DocType = "invoice"
	DocTypeUnknown       DocType = "unknown"
)

var poKeywords = []string{
	"purchase order", "p.o.", "p.o", "p/o",
	"order number", "order no", "order #",
	"ordered by", "ship to", "delivery date",
}

var invoiceKeywords = []string{
	"invoice", "bill", "tax invoice",
	"invoice number", "invoice no", "invoice #",
	"invoice date", "payment due", "amount due",
	"balance due", "total due", "payment terms",
}

// Pattern fallbacks for tied keyword scores. Invoice patterns are
// tried before PO patterns.
var invoicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\binvoice\s*(?:no|number|#|num)[\s:.]*\d+`),
	regexp.MustCompile(`\binv\s*(?:no|number|#|num)[\s:.]*\d+`),
}

var poPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:p(?:urchase)?[/\s.]?o(?:rder)?)[.\s:]*(?:no|number|#|num)[\s:.]*\d+`),
	regexp.MustCompile(`\border\s*(?:no|number|#|num)[\s:.]*\d+`),
}

// DetermineDocType scores keyword occurrences in the document text.
// Each keyword counts once regardless of repetition. Ties fall through
// to identifier pattern matching.
func DetermineDocType(text string) DocType {
	lower := strings.ToLower(text)

	poScore := countKeywords(lower, poKeywords)
	invoiceScore := countKeywords(lower, invoiceKeywords)

	switch {
	case poScore > invoiceScore:
		return DocTypePurchaseOrder
	case invoiceScore > poScore:
		return DocTypeInvoice
	}

	for _, p := range invoicePatterns {
		if p.MatchString(lower) {
			return DocTypeInvoice
		}
	}
	for _, p := range poPatterns {
		if p.MatchString(lower) {
			return DocTypePurchaseOrder
		}
	}
	return DocTypeUnknown
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
