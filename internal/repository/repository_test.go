package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
	"github.com/rsinha/po-reconciliation/pkg/database"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return db
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleRecord(batchID string) *models.PoGrnRecord {
	itemsInGRN := 5
	now := time.Now()
	return &models.PoGrnRecord{
		SNo:              1,
		Location:         "Mumbai",
		PONumber:         "PO-1001",
		POCreationDate:   &now,
		NoItemInPO:       5,
		POAmount:         decimal.RequireFromString("118000"),
		POStatus:         "Closed",
		SupplierName:     "Shree Traders",
		GRNNumber:        "GRN-501",
		NoItemInGRN:      &itemsInGRN,
		ReceivedStatus:   "Received",
		GRNSubtotal:      dec("100000"),
		GRNTax:           dec("18000"),
		GRNAmount:        dec("118000"),
		UploadBatchID:    batchID,
		UploadedFilename: "recon.xlsx",
	}
}

func TestBatchRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewBatchRepository(db.DB, zap.NewNop())

	batch := &models.UploadBatch{
		BatchID:  "batch-1",
		Filename: "recon.xlsx",
		FileSize: 2048,
		Status:   models.BatchStatusProcessing,
	}
	require.NoError(t, repo.Create(batch))
	assert.NotZero(t, batch.ID)

	batch.TotalRecords = 10
	batch.SuccessfulRecords = 8
	batch.FailedRecords = 2
	batch.Status = models.BatchStatusPartial
	batch.ErrorDetails = "2 rows violated uniqueness"
	require.NoError(t, repo.Finalize(batch))

	loaded, err := repo.GetByBatchID("batch-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.BatchStatusPartial, loaded.Status)
	assert.Equal(t, 8, loaded.SuccessfulRecords)
	assert.NotNil(t, loaded.CompletedAt)
	assert.InDelta(t, 80.0, loaded.SuccessRate(), 0.01)

	missing, err := repo.GetByBatchID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	recent, err := repo.ListRecent(5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRecordRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewRecordRepository(db.DB, zap.NewNop())

	record := sampleRecord("batch-1")
	record.Attachments[0] = "https://files.example.com/inv1.pdf"
	require.NoError(t, repo.Create(nil, record))
	assert.NotZero(t, record.ID)

	t.Run("uniqueness within batch", func(t *testing.T) {
		dup := sampleRecord("batch-1")
		assert.Error(t, repo.Create(nil, dup))

		otherBatch := sampleRecord("batch-2")
		assert.NoError(t, repo.Create(nil, otherBatch))
	})

	t.Run("round trip", func(t *testing.T) {
		loaded, err := repo.GetByID(record.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, "PO-1001", loaded.PONumber)
		assert.Equal(t, "GRN-501", loaded.GRNNumber)
		assert.True(t, loaded.POAmount.Equal(decimal.RequireFromString("118000")))
		require.NotNil(t, loaded.GRNTax)
		assert.True(t, loaded.GRNTax.Equal(decimal.RequireFromString("18000")))
		require.NotNil(t, loaded.NoItemInGRN)
		assert.Equal(t, 5, *loaded.NoItemInGRN)
		assert.Equal(t, "https://files.example.com/inv1.pdf", loaded.Attachments[0])
		assert.True(t, loaded.IsFullyReceived())
	})

	t.Run("list with attachments", func(t *testing.T) {
		bare := sampleRecord("batch-3")
		bare.PONumber = "PO-2000"
		require.NoError(t, repo.Create(nil, bare))

		withAttachments, err := repo.ListWithAttachments(0)
		require.NoError(t, err)
		require.Len(t, withAttachments, 1)
		assert.Equal(t, record.ID, withAttachments[0].ID)
	})

	t.Run("count and find", func(t *testing.T) {
		n, err := repo.Count()
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		found, err := repo.FindByPONumber("PO-1001")
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestInvoiceRepository(t *testing.T) {
	db := setupDB(t)
	recordRepo := NewRecordRepository(db.DB, zap.NewNop())
	repo := NewInvoiceRepository(db, zap.NewNop())

	source := sampleRecord("batch-1")
	require.NoError(t, recordRepo.Create(nil, source))

	invDate := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	record := &models.InvoiceRecord{
		SourceRecordID:    &source.ID,
		AttachmentURL:     "https://files.example.com/inv1.pdf",
		AttachmentSlot:    1,
		FileType:          models.FileTypePDFText,
		OriginalExtension: ".pdf",
		VendorName:        "Shree Traders",
		VendorGST:         "27AABCS1234F1Z5",
		VendorPAN:         "AABCS1234F",
		InvoiceNumber:     "INV-884",
		InvoiceDate:       &invDate,
		SubtotalAmount:    dec("100000"),
		CGSTAmount:        dec("9000"),
		SGSTAmount:        dec("9000"),
		TotalGST:          dec("18000"),
		GrandTotal:        dec("118000"),
		ProcessingStatus:  models.ProcessingStatusCompleted,
		ExtractedAt:       time.Now(),
		Items: []*models.InvoiceLineItem{
			{Description: "Steel rods", HSNSAC: "7214", Quantity: dec("10"), UnitPrice: dec("10000"), LineTotal: dec("100000")},
		},
	}
	require.NoError(t, repo.CreateWithItems(record))
	assert.NotZero(t, record.ID)

	t.Run("existence checks", func(t *testing.T) {
		exists, err := repo.ExistsByURL("https://files.example.com/inv1.pdf")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByURL("https://files.example.com/other.pdf")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = repo.ExistsBySourceSlot(source.ID, 1)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsBySourceSlot(source.ID, 2)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("round trip with items", func(t *testing.T) {
		loaded, err := repo.GetByID(record.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, "INV-884", loaded.InvoiceNumber)
		assert.Equal(t, "AABCS1234F", loaded.VendorPAN)
		require.NotNil(t, loaded.GrandTotal)
		assert.True(t, loaded.GrandTotal.Equal(decimal.RequireFromString("118000")))
		require.Len(t, loaded.Items, 1)
		assert.Equal(t, "Steel rods", loaded.Items[0].Description)
		assert.Equal(t, 1, loaded.Items[0].SequenceIndex)
	})

	t.Run("failure records coexist per url", func(t *testing.T) {
		failed := &models.InvoiceRecord{
			SourcePONumber:   "PO-9000",
			AttachmentURL:    "https://files.example.com/scan.jpg",
			FileType:         models.FileTypeImage,
			ProcessingStatus: models.ProcessingStatusFailed,
			ErrorMessage:     "OCR processing not implemented for image files",
			ExtractedAt:      time.Now(),
		}
		require.NoError(t, repo.CreateWithItems(failed))

		summary, err := repo.StatusSummary()
		require.NoError(t, err)
		assert.Equal(t, 1, summary[models.ProcessingStatusCompleted])
		assert.Equal(t, 1, summary[models.ProcessingStatusFailed])

		byType, err := repo.FileTypeSummary()
		require.NoError(t, err)
		assert.Equal(t, 1, byType[models.FileTypeImage])
	})

	t.Run("list by source", func(t *testing.T) {
		list, err := repo.ListBySource(source.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
