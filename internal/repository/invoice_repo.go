package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
	"github.com/rsinha/po-reconciliation/pkg/database"
)

// InvoiceRepository handles extracted invoice database operations.
// Writes go through transactions so a record and its line items land
// atomically.
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// ExistsByURL reports whether any record was already written for the
// attachment URL.
func (r *InvoiceRepository) ExistsByURL(url string) (bool, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM invoice_records WHERE attachment_url = ?", url,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check attachment url: %w", err)
	}
	return n > 0, nil
}

// ExistsBySourceSlot reports whether the given slot of a source record
// was already processed.
func (r *InvoiceRepository) ExistsBySourceSlot(sourceRecordID int64, slot int) (bool, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM invoice_records WHERE source_record_id = ? AND attachment_slot = ?",
		sourceRecordID, slot,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check source slot: %w", err)
	}
	return n > 0, nil
}

// CreateWithItems persists an invoice record and its line items in one
// transaction.
func (r *InvoiceRepository) CreateWithItems(record *models.InvoiceRecord) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		if err := r.create(tx, record); err != nil {
			return err
		}
		for i, item := range record.Items {
			item.InvoiceRecordID = record.ID
			if item.SequenceIndex == 0 {
				item.SequenceIndex = i + 1
			}
			if err := r.createItem(tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *InvoiceRepository) create(tx *sql.Tx, record *models.InvoiceRecord) error {
	query := `
		INSERT INTO invoice_records (
			source_record_id, source_po_number, attachment_url, attachment_slot,
			file_type, original_extension,
			vendor_name, vendor_pan, vendor_gst, invoice_number, invoice_date,
			subtotal_amount, cgst_amount, sgst_amount, igst_amount, total_gst, grand_total,
			processing_status, error_message, extracted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var sourceID interface{}
	if record.SourceRecordID != nil {
		sourceID = *record.SourceRecordID
	}

	result, err := tx.Exec(query,
		sourceID,
		record.SourcePONumber,
		record.AttachmentURL,
		record.AttachmentSlot,
		record.FileType,
		record.OriginalExtension,
		record.VendorName,
		record.VendorPAN,
		record.VendorGST,
		record.InvoiceNumber,
		timeArg(record.InvoiceDate),
		decArg(record.SubtotalAmount),
		decArg(record.CGSTAmount),
		decArg(record.SGSTAmount),
		decArg(record.IGSTAmount),
		decArg(record.TotalGST),
		decArg(record.GrandTotal),
		record.ProcessingStatus,
		record.ErrorMessage,
		record.ExtractedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice record",
			zap.String("url", record.AttachmentURL), zap.Error(err))
		return fmt.Errorf("failed to create invoice record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

func (r *InvoiceRepository) createItem(tx *sql.Tx, item *models.InvoiceLineItem) error {
	query := `
		INSERT INTO invoice_line_items (
			invoice_record_id, sequence_index, description, hsn_sac, unit,
			quantity, unit_price, line_total, tax_rate, tax_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.Exec(query,
		item.InvoiceRecordID,
		item.SequenceIndex,
		item.Description,
		item.HSNSAC,
		item.Unit,
		decArg(item.Quantity),
		decArg(item.UnitPrice),
		decArg(item.LineTotal),
		decArg(item.TaxRate),
		decArg(item.TaxAmount),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice line item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = id
	return nil
}

const invoiceColumns = `
	id, source_record_id, source_po_number, attachment_url, attachment_slot,
	file_type, original_extension,
	vendor_name, vendor_pan, vendor_gst, invoice_number, invoice_date,
	subtotal_amount, cgst_amount, sgst_amount, igst_amount, total_gst, grand_total,
	processing_status, error_message, extracted_at, created_at
`

// GetByID retrieves one invoice record with its line items
func (r *InvoiceRepository) GetByID(id int64) (*models.InvoiceRecord, error) {
	query := "SELECT " + invoiceColumns + " FROM invoice_records WHERE id = ?"

	record, err := r.scanInvoice(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice record: %w", err)
	}

	items, err := r.listItems(record.ID)
	if err != nil {
		return nil, err
	}
	record.Items = items

	return record, nil
}

// ListBySource returns invoice records extracted from one PO/GRN row
func (r *InvoiceRepository) ListBySource(sourceRecordID int64) ([]*models.InvoiceRecord, error) {
	query := "SELECT " + invoiceColumns + " FROM invoice_records WHERE source_record_id = ? ORDER BY attachment_slot"
	return r.queryInvoices(query, sourceRecordID)
}

// ListByStatus returns invoice records in one processing status
func (r *InvoiceRepository) ListByStatus(status string, limit int) ([]*models.InvoiceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + invoiceColumns + " FROM invoice_records WHERE processing_status = ? ORDER BY id DESC LIMIT ?"
	return r.queryInvoices(query, status, limit)
}

// StatusSummary returns record counts keyed by processing status
func (r *InvoiceRepository) StatusSummary() (map[string]int, error) {
	rows, err := r.db.Query(
		"SELECT processing_status, COUNT(*) FROM invoice_records GROUP BY processing_status")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize invoice records: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status summary: %w", err)
		}
		summary[status] = n
	}
	return summary, rows.Err()
}

// FileTypeSummary returns record counts keyed by detected file type
func (r *InvoiceRepository) FileTypeSummary() (map[string]int, error) {
	rows, err := r.db.Query(
		"SELECT file_type, COUNT(*) FROM invoice_records GROUP BY file_type")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize invoice records: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var fileType string
		var n int
		if err := rows.Scan(&fileType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan file type summary: %w", err)
		}
		summary[fileType] = n
	}
	return summary, rows.Err()
}

func (r *InvoiceRepository) queryInvoices(query string, args ...interface{}) ([]*models.InvoiceRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice records: %w", err)
	}
	defer rows.Close()

	var records []*models.InvoiceRecord
	for rows.Next() {
		record, err := r.scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *InvoiceRepository) scanInvoice(row rowScanner) (*models.InvoiceRecord, error) {
	var record models.InvoiceRecord
	var sourceID sql.NullInt64
	var invoiceDate, extractedAt sql.NullTime
	var subtotal, cgst, sgst, igst, totalGST, grandTotal sql.NullString

	err := row.Scan(
		&record.ID,
		&sourceID,
		&record.SourcePONumber,
		&record.AttachmentURL,
		&record.AttachmentSlot,
		&record.FileType,
		&record.OriginalExtension,
		&record.VendorName,
		&record.VendorPAN,
		&record.VendorGST,
		&record.InvoiceNumber,
		&invoiceDate,
		&subtotal,
		&cgst,
		&sgst,
		&igst,
		&totalGST,
		&grandTotal,
		&record.ProcessingStatus,
		&record.ErrorMessage,
		&extractedAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceID.Valid {
		record.SourceRecordID = &sourceID.Int64
	}
	record.InvoiceDate = timeFromNull(invoiceDate)
	if extractedAt.Valid {
		record.ExtractedAt = extractedAt.Time
	}
	record.SubtotalAmount = decFromNull(subtotal)
	record.CGSTAmount = decFromNull(cgst)
	record.SGSTAmount = decFromNull(sgst)
	record.IGSTAmount = decFromNull(igst)
	record.TotalGST = decFromNull(totalGST)
	record.GrandTotal = decFromNull(grandTotal)

	return &record, nil
}

func (r *InvoiceRepository) listItems(invoiceRecordID int64) ([]*models.InvoiceLineItem, error) {
	query := `
		SELECT id, invoice_record_id, sequence_index, description, hsn_sac, unit,
			quantity, unit_price, line_total, tax_rate, tax_amount
		FROM invoice_line_items
		WHERE invoice_record_id = ?
		ORDER BY sequence_index
	`

	rows, err := r.db.Query(query, invoiceRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice line items: %w", err)
	}
	defer rows.Close()

	var items []*models.InvoiceLineItem
	for rows.Next() {
		var item models.InvoiceLineItem
		var quantity, unitPrice, lineTotal, taxRate, taxAmount sql.NullString

		if err := rows.Scan(
			&item.ID,
			&item.InvoiceRecordID,
			&item.SequenceIndex,
			&item.Description,
			&item.HSNSAC,
			&item.Unit,
			&quantity,
			&unitPrice,
			&lineTotal,
			&taxRate,
			&taxAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line item: %w", err)
		}

		item.Quantity = decFromNull(quantity)
		item.UnitPrice = decFromNull(unitPrice)
		item.LineTotal = decFromNull(lineTotal)
		item.TaxRate = decFromNull(taxRate)
		item.TaxAmount = decFromNull(taxAmount)
		items = append(items, &item)
	}
	return items, rows.Err()
}
