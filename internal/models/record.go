package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AttachmentSlots is the number of attachment URL columns carried per row.
const AttachmentSlots = 5

// PoGrnRecord is a reconciled purchase-order / goods-receipt-note row
// loaded from a combined report upload. A record is unique within its
// upload batch on (PONumber, GRNNumber).
type PoGrnRecord struct {
	ID              int64            `json:"id"`
	SNo             int              `json:"s_no,omitempty"`
	Location        string           `json:"location,omitempty"`
	PONumber        string           `json:"po_number"`
	POCreationDate  *time.Time       `json:"po_creation_date,omitempty"`
	NoItemInPO      int              `json:"no_item_in_po,omitempty"`
	POAmount        decimal.Decimal  `json:"po_amount"`
	POStatus        string           `json:"po_status,omitempty"`
	SupplierName    string           `json:"supplier_name,omitempty"`
	ConcernedPerson string           `json:"concerned_person,omitempty"`
	GRNNumber       string           `json:"grn_number"`
	GRNCreationDate *time.Time       `json:"grn_creation_date,omitempty"`
	NoItemInGRN     *int             `json:"no_item_in_grn,omitempty"`
	ReceivedStatus  string           `json:"received_status,omitempty"`
	GRNSubtotal     *decimal.Decimal `json:"grn_subtotal,omitempty"`
	GRNTax          *decimal.Decimal `json:"grn_tax,omitempty"`
	GRNAmount       *decimal.Decimal `json:"grn_amount,omitempty"`

	// Attachment URLs referencing remote invoice files, slot 1..5.
	// Empty string means the slot is unused.
	Attachments [AttachmentSlots]string `json:"attachments"`

	UploadBatchID    string    `json:"upload_batch_id"`
	UploadedFilename string    `json:"uploaded_filename,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// POGRNVariance returns PO amount minus GRN amount, or nil when no GRN
// amount was recorded. Derived, never stored.
func (r *PoGrnRecord) POGRNVariance() *decimal.Decimal {
	if r.GRNAmount == nil {
		return nil
	}
	v := r.POAmount.Sub(*r.GRNAmount)
	return &v
}

// ItemVariance returns the PO item count minus the GRN item count, or
// nil when the GRN item count is unknown.
func (r *PoGrnRecord) ItemVariance() *int {
	if r.NoItemInGRN == nil {
		return nil
	}
	v := r.NoItemInPO - *r.NoItemInGRN
	return &v
}

// IsFullyReceived reports whether the goods were received in full:
// received status is "received" and the item counts match.
func (r *PoGrnRecord) IsFullyReceived() bool {
	return strings.EqualFold(r.ReceivedStatus, "received") &&
		r.NoItemInGRN != nil &&
		*r.NoItemInGRN == r.NoItemInPO
}

// AttachmentURLs returns the non-empty attachment URLs with their
// 1-based slot numbers, in slot order.
func (r *PoGrnRecord) AttachmentURLs() map[int]string {
	urls := make(map[int]string)
	for i, u := range r.Attachments {
		if strings.TrimSpace(u) != "" {
			urls[i+1] = u
		}
	}
	return urls
}
