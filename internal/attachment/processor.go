package attachment

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/invoice"
	"github.com/rsinha/po-reconciliation/internal/models"
	"github.com/rsinha/po-reconciliation/internal/repository"
	"github.com/rsinha/po-reconciliation/pkg/utils"
)

// Fixed failure messages for routes that need OCR, which is not wired
// up. The records are terminal; a future OCR pass can target them by
// file type.
const (
	msgImagePDFNotEnabled = "Image-based PDF processing not enabled yet. This PDF contains scanned images and needs OCR."
	msgImageNotEnabled    = "Image file processing not enabled yet. This file needs OCR processing."
)

// FileAnalyzer downloads and classifies a remote attachment.
type FileAnalyzer interface {
	DownloadAndAnalyze(ctx context.Context, url string) (*Classification, error)
	Cleanup(result *Classification)
}

// InvoiceExtractor turns a text PDF into structured invoice data.
type InvoiceExtractor interface {
	ExtractFromPDF(ctx context.Context, pdfPath, filename string, size int64) (*invoice.InvoiceExtraction, *invoice.Metadata, error)
}

// InvoiceStore persists extraction outcomes and answers the
// idempotency checks.
type InvoiceStore interface {
	ExistsByURL(url string) (bool, error)
	ExistsBySourceSlot(sourceRecordID int64, slot int) (bool, error)
	CreateWithItems(record *models.InvoiceRecord) error
}

// SlotResult is the outcome for one attachment slot.
type SlotResult struct {
	RecordID      int64  `json:"record_id"`
	Slot          int    `json:"slot"`
	URL           string `json:"url"`
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	FileType      string `json:"file_type,omitempty"`
	InvoiceID     int64  `json:"invoice_id,omitempty"`
	VendorName    string `json:"vendor_name,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchResult aggregates one processing run.
type BatchResult struct {
	TotalFound       int          `json:"total_found"`
	Processed        int          `json:"processed"`
	Successful       int          `json:"successful"`
	Failed           int          `json:"failed"`
	AlreadyProcessed int          `json:"already_processed"`
	Results          []SlotResult `json:"results"`
}

// Processor walks PO/GRN records, downloads their attachments, and
// persists extraction outcomes. A failed attachment never aborts the
// run; it gets a terminal failure record and processing continues.
type Processor struct {
	records   *repository.RecordRepository
	invoices  InvoiceStore
	analyzer  FileAnalyzer
	extractor InvoiceExtractor
	logger    *zap.Logger
}

// NewProcessor creates an attachment processor.
func NewProcessor(
	records *repository.RecordRepository,
	invoices InvoiceStore,
	analyzer FileAnalyzer,
	extractor InvoiceExtractor,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		records:   records,
		invoices:  invoices,
		analyzer:  analyzer,
		extractor: extractor,
		logger:    logger,
	}
}

// pendingAttachment is one enumerated (record, slot, URL) triple
// awaiting processing.
type pendingAttachment struct {
	record *models.PoGrnRecord
	slot   int
	url    string
}

// ProcessPending enumerates the attachment URLs of every record that
// carries one, deduplicates them, and processes up to limit
// attachments. forceReprocess skips the idempotency gate and writes
// fresh records.
func (p *Processor) ProcessPending(ctx context.Context, limit int, forceReprocess bool) (*BatchResult, error) {
	records, err := p.records.ListWithAttachments(0)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	pending := p.collectPending(records, batch)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	for _, item := range pending {
		p.processPendingItem(ctx, item, forceReprocess, batch)
	}

	p.logger.Info("Attachment processing run finished",
		zap.Int("records", len(records)),
		zap.Int("attachments_found", batch.TotalFound),
		zap.Int("successful", batch.Successful),
		zap.Int("failed", batch.Failed),
		zap.Int("already_processed", batch.AlreadyProcessed))

	return batch, nil
}

// ProcessRecord processes the attachments of a single record.
func (p *Processor) ProcessRecord(ctx context.Context, recordID int64, forceReprocess bool) (*BatchResult, error) {
	record, err := p.records.GetByID(recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &BatchResult{}, nil
	}

	batch := &BatchResult{}
	for _, item := range p.collectPending([]*models.PoGrnRecord{record}, batch) {
		p.processPendingItem(ctx, item, forceReprocess, batch)
	}
	return batch, nil
}

// collectPending walks the attachment slots of the given records in
// encounter order. The same URL can appear on multiple rows of one
// report; later occurrences are surfaced as already_processed and only
// the first stays in the work list.
func (p *Processor) collectPending(records []*models.PoGrnRecord, batch *BatchResult) []pendingAttachment {
	seen := make(map[string]bool)
	var pending []pendingAttachment

	for _, record := range records {
		for slot := 1; slot <= models.AttachmentSlots; slot++ {
			url := strings.TrimSpace(record.Attachments[slot-1])
			if url == "" {
				continue
			}
			batch.TotalFound++

			if seen[url] {
				batch.AlreadyProcessed++
				batch.Results = append(batch.Results, SlotResult{
					RecordID: record.ID, Slot: slot, URL: url,
					Success: true, Status: "already_processed",
				})
				continue
			}
			seen[url] = true
			pending = append(pending, pendingAttachment{record: record, slot: slot, url: url})
		}
	}
	return pending
}

func (p *Processor) processPendingItem(ctx context.Context, item pendingAttachment, forceReprocess bool, batch *BatchResult) {
	if !forceReprocess {
		done, err := p.alreadyProcessed(item.record.ID, item.slot, item.url)
		if err != nil {
			p.logger.Error("Idempotency check failed", zap.String("url", item.url), zap.Error(err))
			batch.Failed++
			batch.Results = append(batch.Results, SlotResult{
				RecordID: item.record.ID, Slot: item.slot, URL: item.url,
				Status: "error", Error: err.Error(),
			})
			return
		}
		if done {
			batch.AlreadyProcessed++
			batch.Results = append(batch.Results, SlotResult{
				RecordID: item.record.ID, Slot: item.slot, URL: item.url,
				Success: true, Status: "already_processed",
			})
			return
		}
	}

	result := p.processAttachment(ctx, item.record, item.slot, item.url)
	batch.Processed++
	if result.Success {
		batch.Successful++
	} else {
		batch.Failed++
	}
	batch.Results = append(batch.Results, result)
}

func (p *Processor) alreadyProcessed(recordID int64, slot int, url string) (bool, error) {
	if exists, err := p.invoices.ExistsBySourceSlot(recordID, slot); err != nil || exists {
		return exists, err
	}
	return p.invoices.ExistsByURL(url)
}

func (p *Processor) processAttachment(ctx context.Context, record *models.PoGrnRecord, slot int, url string) SlotResult {
	result := SlotResult{RecordID: record.ID, Slot: slot, URL: url}

	classification, err := p.analyzer.DownloadAndAnalyze(ctx, url)
	if err != nil {
		p.logger.Error("Attachment classification failed",
			zap.String("url", url), zap.Error(err))
		p.saveFailure(record, slot, url, models.FileTypeUnknown, "", err.Error())
		result.Status = "error"
		result.Error = err.Error()
		return result
	}
	defer p.analyzer.Cleanup(classification)
	result.FileType = classification.FileType

	switch classification.FileType {
	case models.FileTypePDFText:
		return p.extractAndPersist(ctx, record, slot, url, classification)

	case models.FileTypePDFImage:
		p.logger.Warn("Skipping image-based PDF", zap.String("url", url))
		p.saveFailure(record, slot, url, models.FileTypePDFImage, classification.OriginalExt, msgImagePDFNotEnabled)
		result.Status = "skipped_needs_ocr"
		result.Error = msgImagePDFNotEnabled
		return result

	case models.FileTypeImage:
		p.logger.Warn("Skipping image file", zap.String("url", url))
		p.saveFailure(record, slot, url, models.FileTypeImage, classification.OriginalExt, msgImageNotEnabled)
		result.Status = "skipped_needs_ocr"
		result.Error = msgImageNotEnabled
		return result

	default:
		p.saveFailure(record, slot, url, models.FileTypeUnknown, classification.OriginalExt, "unsupported file type")
		result.Status = "error"
		result.Error = "unsupported file type"
		return result
	}
}

func (p *Processor) extractAndPersist(ctx context.Context, record *models.PoGrnRecord, slot int, url string, classification *Classification) SlotResult {
	result := SlotResult{RecordID: record.ID, Slot: slot, URL: url, FileType: classification.FileType}

	extraction, _, err := p.extractor.ExtractFromPDF(ctx, classification.TempPath, url, classification.FileSize)
	if err != nil {
		p.saveFailure(record, slot, url, classification.FileType, classification.OriginalExt, err.Error())
		result.Status = "error"
		result.Error = err.Error()
		return result
	}

	invoiceRecord := buildInvoiceRecord(record, slot, url, classification, extraction)
	if err := p.invoices.CreateWithItems(invoiceRecord); err != nil {
		p.logger.Error("Failed to persist invoice record",
			zap.String("url", url), zap.Error(err))
		p.saveFailure(record, slot, url, classification.FileType, classification.OriginalExt, err.Error())
		result.Status = "error"
		result.Error = err.Error()
		return result
	}

	p.logger.Info("Attachment processed",
		zap.Int64("record_id", record.ID),
		zap.Int("slot", slot),
		zap.String("invoice_number", invoiceRecord.InvoiceNumber))

	result.Success = true
	result.Status = "completed"
	result.InvoiceID = invoiceRecord.ID
	result.VendorName = invoiceRecord.VendorName
	result.InvoiceNumber = invoiceRecord.InvoiceNumber
	return result
}

func (p *Processor) saveFailure(record *models.PoGrnRecord, slot int, url, fileType, ext, errorMessage string) {
	failure := &models.InvoiceRecord{
		SourceRecordID:    &record.ID,
		SourcePONumber:    record.PONumber,
		AttachmentURL:     url,
		AttachmentSlot:    slot,
		FileType:          fileType,
		OriginalExtension: ext,
		ProcessingStatus:  models.ProcessingStatusFailed,
		ErrorMessage:      errorMessage,
		ExtractedAt:       time.Now(),
	}
	if err := p.invoices.CreateWithItems(failure); err != nil {
		p.logger.Error("Failed to save failure record",
			zap.String("url", url), zap.Error(err))
	}
}

// buildInvoiceRecord maps the extraction onto the stored record. Field
// coercion is per-field best effort; a value that does not parse stays
// unset rather than failing the attachment.
func buildInvoiceRecord(source *models.PoGrnRecord, slot int, url string, classification *Classification, ex *invoice.InvoiceExtraction) *models.InvoiceRecord {
	record := &models.InvoiceRecord{
		SourceRecordID:    &source.ID,
		SourcePONumber:    source.PONumber,
		AttachmentURL:     url,
		AttachmentSlot:    slot,
		FileType:          classification.FileType,
		OriginalExtension: classification.OriginalExt,
		VendorName:        utils.SanitizeString(string(ex.Seller.Name)),
		VendorGST:         string(ex.Seller.GSTIN),
		VendorPAN:         panFromGSTIN(string(ex.Seller.GSTIN)),
		InvoiceNumber:     utils.SanitizeString(string(ex.InvoiceNumber)),
		InvoiceDate:       parseInvoiceDate(string(ex.InvoiceDate)),
		SubtotalAmount:    models.ParseAmountPtr(string(ex.Subtotal)),
		CGSTAmount:        models.ParseAmountPtr(string(ex.Taxes.CGST)),
		SGSTAmount:        models.ParseAmountPtr(string(ex.Taxes.SGST)),
		IGSTAmount:        models.ParseAmountPtr(string(ex.Taxes.IGST)),
		TotalGST:          models.ParseAmountPtr(string(ex.Taxes.TotalTax)),
		GrandTotal:        models.ParseAmountPtr(string(ex.GrandTotal)),
		ProcessingStatus:  models.ProcessingStatusCompleted,
		ExtractedAt:       time.Now(),
	}

	for i, item := range ex.Items {
		record.Items = append(record.Items, &models.InvoiceLineItem{
			SequenceIndex: i + 1,
			Description:   string(item.Description),
			HSNSAC:        string(item.HSNSAC),
			Unit:          string(item.Unit),
			Quantity:      models.ParseAmountPtr(string(item.Quantity)),
			UnitPrice:     models.ParseAmountPtr(string(item.Rate)),
			LineTotal:     models.ParseAmountPtr(string(item.Amount)),
		})
	}

	return record
}

// panFromGSTIN derives the vendor PAN from a valid GSTIN (characters
// 3 through 12). Malformed GSTINs yield no PAN.
func panFromGSTIN(gstin string) string {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	if utils.ValidateGSTIN(gstin) != nil {
		return ""
	}
	return gstin[2:12]
}

var invoiceDateFormats = []string{"02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006"}

func parseInvoiceDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range invoiceDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
