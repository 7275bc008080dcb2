package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
	"github.com/rsinha/po-reconciliation/internal/repository"
	"github.com/rsinha/po-reconciliation/internal/tabular"
)

// UploadResult is returned to the API after one file ingestion.
type UploadResult struct {
	Batch         *models.UploadBatch `json:"batch"`
	DataType      tabular.DataType    `json:"data_type"`
	Summary       *tabular.Summary    `json:"summary"`
	ColumnsMapped map[string]string   `json:"columns_mapped,omitempty"`
}

// Service runs the upload batch lifecycle: extract the table, persist
// canonical rows one by one, and finalize the batch with per-row
// accounting. A bad row is counted and skipped, never fatal.
type Service struct {
	extractor *tabular.Extractor
	batches   *repository.BatchRepository
	records   *repository.RecordRepository
	logger    *zap.Logger
}

// NewService creates an ingest service.
func NewService(
	extractor *tabular.Extractor,
	batches *repository.BatchRepository,
	records *repository.RecordRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		extractor: extractor,
		batches:   batches,
		records:   records,
		logger:    logger,
	}
}

// IngestUpload processes one uploaded spreadsheet or CSV.
func (s *Service) IngestUpload(src io.Reader, filename string, size int64) (*UploadResult, error) {
	batch := &models.UploadBatch{
		BatchID:  uuid.New().String(),
		Filename: filename,
		FileSize: size,
		Status:   models.BatchStatusProcessing,
	}
	if err := s.batches.Create(batch); err != nil {
		return nil, err
	}

	extraction, err := s.extractor.Extract(src, filename, size)
	if err != nil {
		batch.Status = models.BatchStatusFailed
		batch.ErrorDetails = err.Error()
		if finErr := s.batches.Finalize(batch); finErr != nil {
			s.logger.Error("Failed to finalize failed batch", zap.Error(finErr))
		}
		return nil, err
	}

	batch.TotalRecords = extraction.TotalRecords

	if extraction.DataType == tabular.DataTypeUnknown {
		// Analysis-only: nothing canonical to persist.
		batch.Status = models.BatchStatusCompleted
		if err := s.batches.Finalize(batch); err != nil {
			return nil, err
		}
		return &UploadResult{
			Batch:    batch,
			DataType: extraction.DataType,
			Summary:  extraction.Summary,
		}, nil
	}

	var rowErrors []string
	for i, row := range extraction.Records {
		record := toCanonicalRecord(row, batch.BatchID, filename)
		if err := s.records.Create(nil, record); err != nil {
			batch.FailedRecords++
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			s.logger.Warn("Failed to persist row",
				zap.String("batch_id", batch.BatchID),
				zap.Int("row", i+1),
				zap.Error(err))
			continue
		}
		batch.SuccessfulRecords++
	}

	switch {
	case batch.SuccessfulRecords == 0 && batch.TotalRecords > 0:
		batch.Status = models.BatchStatusFailed
	case batch.FailedRecords > 0:
		batch.Status = models.BatchStatusPartial
	default:
		batch.Status = models.BatchStatusCompleted
	}
	if len(rowErrors) > 0 {
		batch.ErrorDetails = strings.Join(rowErrors, "; ")
	}

	if err := s.batches.Finalize(batch); err != nil {
		return nil, err
	}

	s.logger.Info("Upload ingested",
		zap.String("batch_id", batch.BatchID),
		zap.String("data_type", string(extraction.DataType)),
		zap.Int("total", batch.TotalRecords),
		zap.Int("successful", batch.SuccessfulRecords),
		zap.Int("failed", batch.FailedRecords))

	return &UploadResult{
		Batch:         batch,
		DataType:      extraction.DataType,
		Summary:       extraction.Summary,
		ColumnsMapped: extraction.ColumnsMapped,
	}, nil
}

// toCanonicalRecord maps an extracted row onto the stored combined
// shape. Pure PO and pure GRN sheets fill their half and leave the
// rest zero-valued.
func toCanonicalRecord(row *tabular.Record, batchID, filename string) *models.PoGrnRecord {
	record := &models.PoGrnRecord{
		SNo:              row.SNo,
		Location:         row.Location,
		PONumber:         row.PONumber,
		POCreationDate:   parseDate(firstNonEmpty(row.POCreationDate, row.PODate)),
		NoItemInPO:       row.NoItemInPO,
		POAmount:         row.POAmount,
		POStatus:         firstNonEmpty(row.POStatus, row.Status),
		SupplierName:     firstNonEmpty(row.SupplierName, row.VendorName),
		ConcernedPerson:  row.ConcernedPerson,
		GRNNumber:        row.GRNNumber,
		GRNCreationDate:  parseDate(firstNonEmpty(row.GRNCreationDate, row.GRNDate)),
		ReceivedStatus:   row.ReceivedStatus,
		UploadBatchID:    batchID,
		UploadedFilename: filename,
	}

	if row.NoItemInGRN != 0 {
		v := row.NoItemInGRN
		record.NoItemInGRN = &v
	}
	if !row.GRNSubtotal.IsZero() {
		d := row.GRNSubtotal
		record.GRNSubtotal = &d
	}
	if !row.GRNTax.IsZero() {
		d := row.GRNTax
		record.GRNTax = &d
	}
	if !row.GRNAmount.IsZero() {
		d := row.GRNAmount
		record.GRNAmount = &d
	}

	// Attachment URL columns have no canonical alias; they ride along
	// in the extra map under their normalized headers.
	for i := 1; i <= models.AttachmentSlots; i++ {
		if url, ok := row.Extra[fmt.Sprintf("attachment_%d", i)]; ok {
			record.Attachments[i-1] = strings.TrimSpace(url)
		}
	}

	return record
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return nil
	}
	return &t
}
