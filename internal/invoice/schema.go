package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedExtraction indicates the model response is not the
// expected JSON document.
var ErrMalformedExtraction = errors.New("malformed extraction response")

// FlexString tolerates models that emit numbers where the schema asks
// for strings. Numeric tokens are kept verbatim as text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}
	*f = FlexString(n.String())
	return nil
}

// Party identifies one side of the invoice.
type Party struct {
	Name    FlexString `json:"name"`
	GSTIN   FlexString `json:"gstin"`
	Address FlexString `json:"address"`
	Phone   FlexString `json:"phone"`
	Email   FlexString `json:"email"`
}

// ItemExtraction is one invoice line item as extracted.
type ItemExtraction struct {
	Description FlexString `json:"description"`
	HSNSAC      FlexString `json:"hsn_sac"`
	Quantity    FlexString `json:"quantity"`
	Unit        FlexString `json:"unit"`
	Rate        FlexString `json:"rate"`
	Discount    FlexString `json:"discount"`
	Amount      FlexString `json:"amount"`
}

// Taxes holds the GST breakup.
type Taxes struct {
	CGST     FlexString `json:"cgst"`
	SGST     FlexString `json:"sgst"`
	IGST     FlexString `json:"igst"`
	Cess     FlexString `json:"cess"`
	TotalTax FlexString `json:"total_tax"`
}

// BankDetails holds payment routing information.
type BankDetails struct {
	BankName      FlexString `json:"bank_name"`
	AccountNumber FlexString `json:"account_number"`
	IFSCCode      FlexString `json:"ifsc_code"`
	Branch        FlexString `json:"branch"`
}

// InvoiceExtraction is the full structured result the model must
// produce. Unknown keys in the response are dropped; missing keys stay
// empty.
type InvoiceExtraction struct {
	InvoiceNumber FlexString       `json:"invoice_number"`
	InvoiceDate   FlexString       `json:"invoice_date"`
	DueDate       FlexString       `json:"due_date"`
	Seller        Party            `json:"seller"`
	Buyer         Party            `json:"buyer"`
	Items         []ItemExtraction `json:"items"`
	Subtotal      FlexString       `json:"subtotal"`
	DiscountTotal FlexString       `json:"discount_total"`
	Taxes         Taxes            `json:"taxes"`
	GrandTotal    FlexString       `json:"grand_total"`
	AmountInWords FlexString       `json:"amount_in_words"`
	PaymentTerms  FlexString       `json:"payment_terms"`
	BankDetails   BankDetails      `json:"bank_details"`
}

// SchemaJSON renders the empty extraction schema for prompt embedding.
func SchemaJSON() string {
	empty := InvoiceExtraction{Items: []ItemExtraction{{}}}
	data, _ := json.MarshalIndent(empty, "", "  ")
	return string(data)
}

// ParseExtraction strips markdown code fences and parses the model
// response into the typed schema.
func ParseExtraction(raw string) (*InvoiceExtraction, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedExtraction)
	}

	var result InvoiceExtraction
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExtraction, err)
	}
	return &result, nil
}
