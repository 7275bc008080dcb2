package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
)

// RecordRepository handles PO/GRN record database operations
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `
	id, s_no, location, po_number, po_creation_date, no_item_in_po,
	po_amount, po_status, supplier_name, concerned_person,
	grn_number, grn_creation_date, no_item_in_grn, received_status,
	grn_subtotal, grn_tax, grn_amount,
	attachment_1, attachment_2, attachment_3, attachment_4, attachment_5,
	upload_batch_id, uploaded_filename, created_at, updated_at
`

// Create inserts a new record. Violating the per-batch (po_number,
// grn_number) uniqueness surfaces as an error for the caller to count
// as a row failure.
func (r *RecordRepository) Create(tx *sql.Tx, record *models.PoGrnRecord) error {
	query := `
		INSERT INTO po_grn_records (
			s_no, location, po_number, po_creation_date, no_item_in_po,
			po_amount, po_status, supplier_name, concerned_person,
			grn_number, grn_creation_date, no_item_in_grn, received_status,
			grn_subtotal, grn_tax, grn_amount,
			attachment_1, attachment_2, attachment_3, attachment_4, attachment_5,
			upload_batch_id, uploaded_filename
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		record.SNo,
		record.Location,
		record.PONumber,
		timeArg(record.POCreationDate),
		record.NoItemInPO,
		record.POAmount.String(),
		record.POStatus,
		record.SupplierName,
		record.ConcernedPerson,
		record.GRNNumber,
		timeArg(record.GRNCreationDate),
		intArg(record.NoItemInGRN),
		record.ReceivedStatus,
		decArg(record.GRNSubtotal),
		decArg(record.GRNTax),
		decArg(record.GRNAmount),
		record.Attachments[0],
		record.Attachments[1],
		record.Attachments[2],
		record.Attachments[3],
		record.Attachments[4],
		record.UploadBatchID,
		record.UploadedFilename,
	}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetByID retrieves one record
func (r *RecordRepository) GetByID(id int64) (*models.PoGrnRecord, error) {
	query := "SELECT " + recordColumns + " FROM po_grn_records WHERE id = ?"

	record, err := r.scanRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// ListByBatch returns all records ingested in one upload batch
func (r *RecordRepository) ListByBatch(batchID string) ([]*models.PoGrnRecord, error) {
	query := "SELECT " + recordColumns + " FROM po_grn_records WHERE upload_batch_id = ? ORDER BY id"
	return r.queryRecords(query, batchID)
}

// ListWithAttachments returns records carrying at least one attachment
// URL, the working set for the attachment pipeline.
func (r *RecordRepository) ListWithAttachments(limit int) ([]*models.PoGrnRecord, error) {
	var conds []string
	for i := 1; i <= models.AttachmentSlots; i++ {
		conds = append(conds, fmt.Sprintf("attachment_%d != ''", i))
	}

	query := "SELECT " + recordColumns + " FROM po_grn_records WHERE " +
		strings.Join(conds, " OR ") + " ORDER BY id"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return r.queryRecords(query, args...)
}

// FindByPONumber returns records for one purchase order
func (r *RecordRepository) FindByPONumber(poNumber string) ([]*models.PoGrnRecord, error) {
	query := "SELECT " + recordColumns + " FROM po_grn_records WHERE po_number = ? ORDER BY id"
	return r.queryRecords(query, poNumber)
}

// Count returns the total number of records
func (r *RecordRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM po_grn_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (r *RecordRepository) queryRecords(query string, args ...interface{}) ([]*models.PoGrnRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.PoGrnRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RecordRepository) scanRecord(row rowScanner) (*models.PoGrnRecord, error) {
	var record models.PoGrnRecord
	var poDate, grnDate sql.NullTime
	var noItemInGRN sql.NullInt64
	var poAmount string
	var grnSubtotal, grnTax, grnAmount sql.NullString

	err := row.Scan(
		&record.ID,
		&record.SNo,
		&record.Location,
		&record.PONumber,
		&poDate,
		&record.NoItemInPO,
		&poAmount,
		&record.POStatus,
		&record.SupplierName,
		&record.ConcernedPerson,
		&record.GRNNumber,
		&grnDate,
		&noItemInGRN,
		&record.ReceivedStatus,
		&grnSubtotal,
		&grnTax,
		&grnAmount,
		&record.Attachments[0],
		&record.Attachments[1],
		&record.Attachments[2],
		&record.Attachments[3],
		&record.Attachments[4],
		&record.UploadBatchID,
		&record.UploadedFilename,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.POCreationDate = timeFromNull(poDate)
	record.GRNCreationDate = timeFromNull(grnDate)
	record.NoItemInGRN = intFromNull(noItemInGRN)
	if d := decFromNull(sql.NullString{String: poAmount, Valid: true}); d != nil {
		record.POAmount = *d
	}
	record.GRNSubtotal = decFromNull(grnSubtotal)
	record.GRNTax = decFromNull(grnTax)
	record.GRNAmount = decFromNull(grnAmount)

	return &record, nil
}
