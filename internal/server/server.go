package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/attachment"
	"github.com/rsinha/po-reconciliation/internal/document"
	"github.com/rsinha/po-reconciliation/internal/ingest"
	"github.com/rsinha/po-reconciliation/internal/models"
	"github.com/rsinha/po-reconciliation/internal/repository"
)

// Server wires the HTTP API over the ingest and attachment pipelines.
type Server struct {
	ingest    *ingest.Service
	processor *attachment.Processor
	documents *document.Classifier
	batches   *repository.BatchRepository
	records   *repository.RecordRepository
	invoices  *repository.InvoiceRepository

	maxUploadSize int64
	batchLimit    int
	logger        *zap.Logger
}

// Config holds HTTP-layer tunables.
type Config struct {
	MaxUploadSize int64
	BatchLimit    int
}

// New creates the API server.
func New(
	ingestSvc *ingest.Service,
	processor *attachment.Processor,
	documents *document.Classifier,
	batches *repository.BatchRepository,
	records *repository.RecordRepository,
	invoices *repository.InvoiceRepository,
	cfg Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingest:        ingestSvc,
		processor:     processor,
		documents:     documents,
		batches:       batches,
		records:       records,
		invoices:      invoices,
		maxUploadSize: cfg.MaxUploadSize,
		batchLimit:    cfg.BatchLimit,
		logger:        logger,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	{
		api.POST("/upload", s.handleUpload)
		api.GET("/batches/:batch_id", s.handleGetBatch)
		api.POST("/documents/check", s.handleCheckDocument)
		api.POST("/attachments/process", s.handleProcessAttachments)
		api.GET("/attachments/status", s.handleAttachmentStatus)
		api.GET("/records/:id/invoices", s.handleRecordInvoices)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "po-reconciliation",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// handleUpload ingests one spreadsheet or CSV from a multipart form.
func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing form file 'file'"})
		return
	}

	if s.maxUploadSize > 0 && fileHeader.Size > s.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds upload size limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer file.Close()

	result, err := s.ingest.IngestUpload(file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		s.logger.Warn("Upload rejected",
			zap.String("filename", fileHeader.Filename), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetBatch(c *gin.Context) {
	batch, err := s.batches.GetByBatchID(c.Param("batch_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batch_id":           batch.BatchID,
		"filename":           batch.Filename,
		"status":             batch.Status,
		"total_records":      batch.TotalRecords,
		"successful_records": batch.SuccessfulRecords,
		"failed_records":     batch.FailedRecords,
		"success_rate":       batch.SuccessRate(),
		"error_details":      batch.ErrorDetails,
		"created_at":         batch.CreatedAt,
		"completed_at":       batch.CompletedAt,
	})
}

// handleCheckDocument classifies an uploaded file without persisting
// anything. Text PDFs also get a purchase-order vs invoice verdict.
func (s *Server) handleCheckDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing form file 'file'"})
		return
	}

	tmp, err := os.CreateTemp("", "document_*"+strings.ToLower(filepath.Ext(fileHeader.Filename)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage uploaded file"})
		return
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveUploadedFile(fileHeader, tmp.Name()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage uploaded file"})
		return
	}

	cls := s.documents.Classify(tmp.Name())
	resp := gin.H{
		"filename":    fileHeader.Filename,
		"kind":        cls.Kind,
		"processable": cls.Processable,
	}
	if cls.Reason != "" {
		resp["reason"] = cls.Reason
	}

	if cls.Kind == document.KindPDF && cls.Processable {
		text, err := document.ReadText(tmp.Name())
		if err == nil {
			resp["doc_type"] = document.DetermineDocType(text)
		}
	}

	c.JSON(http.StatusOK, resp)
}

type processRequest struct {
	RecordID       int64 `json:"record_id"`
	Limit          int   `json:"limit"`
	ForceReprocess bool  `json:"force_reprocess"`
}

// handleProcessAttachments runs the attachment pipeline, either for
// one record or for all pending records up to the limit.
func (s *Server) handleProcessAttachments(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.batchLimit
	}

	var (
		result *attachment.BatchResult
		err    error
	)
	if req.RecordID > 0 {
		result, err = s.processor.ProcessRecord(c.Request.Context(), req.RecordID, req.ForceReprocess)
	} else {
		result, err = s.processor.ProcessPending(c.Request.Context(), limit, req.ForceReprocess)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleAttachmentStatus reports either overall extraction counts or,
// with ?po_number=, per-slot progress for every record under that PO.
func (s *Server) handleAttachmentStatus(c *gin.Context) {
	if poNumber := c.Query("po_number"); poNumber != "" {
		s.poProgress(c, poNumber)
		return
	}

	statuses, err := s.invoices.StatusSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fileTypes, err := s.invoices.FileTypeSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	total, err := s.records.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_records":     total,
		"status_summary":    statuses,
		"file_type_summary": fileTypes,
	})
}

type slotProgress struct {
	Slot          int    `json:"slot"`
	URL           string `json:"url"`
	Processed     bool   `json:"processed"`
	Status        string `json:"status"`
	VendorName    string `json:"vendor_name,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Error         string `json:"error,omitempty"`
}

type recordProgress struct {
	RecordID    int64          `json:"record_id"`
	GRNNumber   string         `json:"grn_number"`
	Supplier    string         `json:"supplier,omitempty"`
	Total       int            `json:"total_attachments"`
	Processed   int            `json:"processed_attachments"`
	Attachments []slotProgress `json:"attachments"`
}

func (s *Server) poProgress(c *gin.Context, poNumber string) {
	records, err := s.records.FindByPONumber(poNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no records found for PO number " + poNumber})
		return
	}

	var (
		progress       []recordProgress
		totalSlots     int
		processedSlots int
	)
	for _, record := range records {
		urls := record.AttachmentURLs()
		if len(urls) == 0 {
			continue
		}

		invoices, err := s.invoices.ListBySource(record.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// Reprocessed slots have several records; the newest one wins.
		bySlot := make(map[int]*models.InvoiceRecord, len(invoices))
		for _, inv := range invoices {
			if prev, ok := bySlot[inv.AttachmentSlot]; !ok || inv.ID > prev.ID {
				bySlot[inv.AttachmentSlot] = inv
			}
		}

		rp := recordProgress{
			RecordID:  record.ID,
			GRNNumber: record.GRNNumber,
			Supplier:  record.SupplierName,
		}
		for slot := 1; slot <= models.AttachmentSlots; slot++ {
			url, ok := urls[slot]
			if !ok {
				continue
			}
			rp.Total++
			totalSlots++

			sp := slotProgress{Slot: slot, URL: url, Status: "not_processed"}
			if inv, ok := bySlot[slot]; ok {
				rp.Processed++
				processedSlots++
				sp.Processed = true
				sp.Status = inv.ProcessingStatus
				sp.VendorName = inv.VendorName
				sp.InvoiceNumber = inv.InvoiceNumber
				if inv.ProcessingStatus == models.ProcessingStatusFailed {
					sp.Error = inv.ErrorMessage
				}
			}
			rp.Attachments = append(rp.Attachments, sp)
		}
		progress = append(progress, rp)
	}

	c.JSON(http.StatusOK, gin.H{
		"po_number":             poNumber,
		"total_records":         len(records),
		"total_attachments":     totalSlots,
		"processed_attachments": processedSlots,
		"records":               progress,
	})
}

func (s *Server) handleRecordInvoices(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	invoices, err := s.invoices.ListBySource(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record_id": id,
		"count":     len(invoices),
		"invoices":  invoices,
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
