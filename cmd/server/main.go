package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/attachment"
	"github.com/rsinha/po-reconciliation/internal/config"
	"github.com/rsinha/po-reconciliation/internal/document"
	"github.com/rsinha/po-reconciliation/internal/ingest"
	"github.com/rsinha/po-reconciliation/internal/invoice"
	"github.com/rsinha/po-reconciliation/internal/repository"
	"github.com/rsinha/po-reconciliation/internal/server"
	"github.com/rsinha/po-reconciliation/internal/tabular"
	"github.com/rsinha/po-reconciliation/pkg/database"
	"github.com/rsinha/po-reconciliation/pkg/utils"
)

func main() {
	// Local .env is optional, production sets real environment variables
	_ = gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting PO Reconciliation Service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Create data directory for the sqlite file
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	batchRepo := repository.NewBatchRepository(db.DB, logger)
	recordRepo := repository.NewRecordRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db, logger)

	// Upload ingestion pipeline
	extractor := tabular.NewExtractor(logger)
	ingestSvc := ingest.NewService(extractor, batchRepo, recordRepo, logger)

	// Attachment extraction pipeline
	analyzer := attachment.NewClassifier(
		&http.Client{Timeout: cfg.Extraction.DownloadTimeout},
		cfg.Extraction.PDFTextThreshold,
		cfg.Extraction.SamplePages,
		logger,
	)

	completer := invoice.NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature)
	invoiceExtractor := invoice.NewExtractor(completer, cfg.OpenAI.Model, cfg.OpenAI.Timeout, logger)

	processor := attachment.NewProcessor(recordRepo, invoiceRepo, analyzer, invoiceExtractor, logger)

	docClassifier := document.NewClassifier(logger)

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize HTTP router
	apiServer := server.New(ingestSvc, processor, docClassifier, batchRepo, recordRepo, invoiceRepo, server.Config{
		MaxUploadSize: cfg.Ingest.MaxUploadSize,
		BatchLimit:    cfg.Extraction.BatchLimit,
	}, logger)
	router := apiServer.Router()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
