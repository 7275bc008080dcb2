package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
)

// BatchRepository handles upload batch database operations
type BatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *sql.DB, logger *zap.Logger) *BatchRepository {
	return &BatchRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new batch in processing status
func (r *BatchRepository) Create(batch *models.UploadBatch) error {
	query := `
		INSERT INTO upload_batches (batch_id, filename, file_size, status)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		batch.BatchID,
		batch.Filename,
		batch.FileSize,
		batch.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create upload batch", zap.Error(err))
		return fmt.Errorf("failed to create upload batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	batch.ID = id
	return nil
}

// Finalize records the outcome counters and terminal status
func (r *BatchRepository) Finalize(batch *models.UploadBatch) error {
	now := time.Now()
	query := `
		UPDATE upload_batches
		SET total_records = ?, successful_records = ?, failed_records = ?,
			status = ?, error_details = ?, completed_at = ?
		WHERE batch_id = ?
	`

	_, err := r.db.Exec(query,
		batch.TotalRecords,
		batch.SuccessfulRecords,
		batch.FailedRecords,
		batch.Status,
		batch.ErrorDetails,
		now,
		batch.BatchID,
	)
	if err != nil {
		r.logger.Error("Failed to finalize upload batch",
			zap.String("batch_id", batch.BatchID), zap.Error(err))
		return fmt.Errorf("failed to finalize upload batch: %w", err)
	}

	batch.CompletedAt = &now
	return nil
}

// GetByBatchID retrieves a batch by its public identifier
func (r *BatchRepository) GetByBatchID(batchID string) (*models.UploadBatch, error) {
	query := `
		SELECT id, batch_id, filename, file_size, total_records,
			successful_records, failed_records, status, error_details,
			created_at, completed_at
		FROM upload_batches
		WHERE batch_id = ?
	`

	var batch models.UploadBatch
	var errorDetails sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, batchID).Scan(
		&batch.ID,
		&batch.BatchID,
		&batch.Filename,
		&batch.FileSize,
		&batch.TotalRecords,
		&batch.SuccessfulRecords,
		&batch.FailedRecords,
		&batch.Status,
		&errorDetails,
		&batch.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get upload batch", zap.Error(err))
		return nil, fmt.Errorf("failed to get upload batch: %w", err)
	}

	batch.ErrorDetails = errorDetails.String
	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}

	return &batch, nil
}

// ListRecent returns the latest batches, newest first
func (r *BatchRepository) ListRecent(limit int) ([]*models.UploadBatch, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, batch_id, filename, file_size, total_records,
			successful_records, failed_records, status, error_details,
			created_at, completed_at
		FROM upload_batches
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.UploadBatch
	for rows.Next() {
		var batch models.UploadBatch
		var errorDetails sql.NullString
		var completedAt sql.NullTime

		if err := rows.Scan(
			&batch.ID,
			&batch.BatchID,
			&batch.Filename,
			&batch.FileSize,
			&batch.TotalRecords,
			&batch.SuccessfulRecords,
			&batch.FailedRecords,
			&batch.Status,
			&errorDetails,
			&batch.CreatedAt,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload batch: %w", err)
		}

		batch.ErrorDetails = errorDetails.String
		if completedAt.Valid {
			batch.CompletedAt = &completedAt.Time
		}
		batches = append(batches, &batch)
	}

	return batches, rows.Err()
}
