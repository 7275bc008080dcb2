package models

import "time"

// Batch processing statuses
const (
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
	BatchStatusPartial    = "partial"
)

// UploadBatch tracks a single file ingestion attempt
type UploadBatch struct {
	ID                int64      `json:"id"`
	BatchID           string     `json:"batch_id"`
	Filename          string     `json:"filename"`
	FileSize          int64      `json:"file_size"`
	TotalRecords      int        `json:"total_records"`
	SuccessfulRecords int        `json:"successful_records"`
	FailedRecords     int        `json:"failed_records"`
	Status            string     `json:"status"`
	ErrorDetails      string     `json:"error_details,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// SuccessRate returns the percentage of successfully persisted records
func (b *UploadBatch) SuccessRate() float64 {
	if b.TotalRecords == 0 {
		return 0
	}
	return float64(b.SuccessfulRecords) / float64(b.TotalRecords) * 100
}
