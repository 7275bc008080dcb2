package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Detected file types for downloaded attachments
const (
	FileTypePDFText  = "pdf_text"
	FileTypePDFImage = "pdf_image"
	FileTypeImage    = "image"
	FileTypeUnknown  = "unknown"
)

// Attachment processing statuses
const (
	ProcessingStatusCompleted = "completed"
	ProcessingStatusFailed    = "failed"
)

// InvoiceRecord holds the result of processing one attachment URL.
// Records are written exactly once per (source, attachment URL) pair:
// a prior record is the idempotency gate, and failures get their own
// terminal failed-status record rather than mutating an existing one.
type InvoiceRecord struct {
	ID int64 `json:"id"`

	// Source reference: either the GRN row that carried the attachment
	// or a bare PO number, never both.
	SourceRecordID *int64 `json:"source_record_id,omitempty"`
	SourcePONumber string `json:"source_po_number,omitempty"`

	AttachmentURL     string `json:"attachment_url"`
	AttachmentSlot    int    `json:"attachment_slot"`
	FileType          string `json:"file_type"`
	OriginalExtension string `json:"original_extension,omitempty"`

	VendorName    string     `json:"vendor_name,omitempty"`
	VendorPAN     string     `json:"vendor_pan,omitempty"`
	VendorGST     string     `json:"vendor_gst,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	InvoiceDate   *time.Time `json:"invoice_date,omitempty"`

	SubtotalAmount *decimal.Decimal `json:"subtotal_amount,omitempty"`
	CGSTAmount     *decimal.Decimal `json:"cgst_amount,omitempty"`
	SGSTAmount     *decimal.Decimal `json:"sgst_amount,omitempty"`
	IGSTAmount     *decimal.Decimal `json:"igst_amount,omitempty"`
	TotalGST       *decimal.Decimal `json:"total_gst,omitempty"`
	GrandTotal     *decimal.Decimal `json:"grand_total,omitempty"`

	ProcessingStatus string    `json:"processing_status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ExtractedAt      time.Time `json:"extracted_at"`
	CreatedAt        time.Time `json:"created_at"`

	Items []*InvoiceLineItem `json:"items,omitempty"`
}

// InvoiceLineItem is one invoice line owned by exactly one
// InvoiceRecord (cascade-deleted with its parent).
type InvoiceLineItem struct {
	ID              int64            `json:"id"`
	InvoiceRecordID int64            `json:"invoice_record_id"`
	SequenceIndex   int              `json:"sequence_index"`
	Description     string           `json:"description"`
	HSNSAC          string           `json:"hsn_sac,omitempty"`
	Unit            string           `json:"unit,omitempty"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal       *decimal.Decimal `json:"line_total,omitempty"`
	TaxRate         *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount       *decimal.Decimal `json:"tax_amount,omitempty"`
}
