package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
)

var (
	// ErrUnsupportedFormat indicates no detection strategy recognized
	// the downloaded bytes, content type, or URL suffix.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidImage indicates the downloaded image does not decode.
	ErrInvalidImage = errors.New("invalid image file")
)

// Processing method labels reported alongside the file type.
const (
	methodTextExtraction = "Direct text extraction + LLM"
	methodPDFOCR         = "PDF -> Images -> OCR -> LLM"
	methodImageOCR       = "OCR -> LLM"
)

const (
	// Average extractable characters per page above which a PDF is
	// treated as text-based.
	pdfTextThreshold = 100

	// Pages sampled when measuring text density.
	pdfSamplePages = 3
)

var (
	pdfMagic  = []byte("%PDF")
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)

// HTTPClient is the subset of http.Client the classifier needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Classification describes a downloaded attachment and how it should
// be processed. TempPath points at the downloaded copy; the caller
// owns its lifecycle and must call Cleanup when done.
type Classification struct {
	TempPath         string
	OriginalExt      string
	DetectedFormat   string
	FileType         string
	ProcessingMethod string
	FileSize         int64
}

// Classifier downloads remote attachments and decides the processing
// route by magic bytes, content type, and URL suffix, in that order.
type Classifier struct {
	client        HTTPClient
	textThreshold int
	samplePages   int
	logger        *zap.Logger
}

// NewClassifier creates a classifier over the given HTTP client. Pass
// nil to use a client with a 30 second timeout; zero threshold or
// sample count selects the defaults.
func NewClassifier(client HTTPClient, textThreshold, samplePages int, logger *zap.Logger) *Classifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if textThreshold <= 0 {
		textThreshold = pdfTextThreshold
	}
	if samplePages <= 0 {
		samplePages = pdfSamplePages
	}
	return &Classifier{
		client:        client,
		textThreshold: textThreshold,
		samplePages:   samplePages,
		logger:        logger,
	}
}

// DownloadAndAnalyze fetches the URL, writes the body to a temp file
// with the detected extension, and determines the processing route.
// The temp file is removed on every error path.
func (c *Classifier) DownloadAndAnalyze(ctx context.Context, url string) (*Classification, error) {
	c.logger.Info("Downloading attachment", zap.String("url", url))

	data, contentType, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}

	format, ext, err := detectFormat(data, contentType, url)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "attachment_*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	result := &Classification{
		TempPath:       tmpPath,
		OriginalExt:    ext,
		DetectedFormat: format,
		FileType:       models.FileTypeUnknown,
		FileSize:       int64(len(data)),
	}

	switch format {
	case "PDF":
		if c.hasExtractableText(tmpPath) {
			result.FileType = models.FileTypePDFText
			result.ProcessingMethod = methodTextExtraction
		} else {
			result.FileType = models.FileTypePDFImage
			result.ProcessingMethod = methodPDFOCR
		}
	case "JPEG", "PNG":
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			os.Remove(tmpPath)
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		result.FileType = models.FileTypeImage
		result.ProcessingMethod = methodImageOCR
	}

	c.logger.Info("Attachment classified",
		zap.String("url", url),
		zap.String("file_type", result.FileType),
		zap.String("detected_format", result.DetectedFormat),
		zap.Int64("file_size", result.FileSize))

	return result, nil
}

// Cleanup removes the temp file. Failures are logged, never escalated.
func (c *Classifier) Cleanup(result *Classification) {
	if result == nil || result.TempPath == "" {
		return
	}
	if err := os.Remove(result.TempPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("Failed to remove temp file",
			zap.String("path", result.TempPath), zap.Error(err))
		return
	}
	result.TempPath = ""
}

func (c *Classifier) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid attachment URL: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}

	return data, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

// detectFormat resolves the file format by magic bytes first, then the
// response content type, then the URL suffix.
func detectFormat(data []byte, contentType, url string) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return "PDF", ".pdf", nil
	case bytes.HasPrefix(data, jpegMagic):
		return "JPEG", ".jpg", nil
	case bytes.HasPrefix(data, pngMagic):
		return "PNG", ".png", nil
	}

	switch {
	case strings.Contains(contentType, "pdf"):
		return "PDF", ".pdf", nil
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "JPEG", ".jpg", nil
	case strings.Contains(contentType, "png"):
		return "PNG", ".png", nil
	}

	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "PDF", ".pdf", nil
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "JPEG", ".jpg", nil
	case strings.HasSuffix(lower, ".png"):
		return "PNG", ".png", nil
	}

	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, url)
}

// hasExtractableText samples the first pages and compares average text
// length per page against the density threshold. Unreadable PDFs are
// routed to OCR.
func (c *Classifier) hasExtractableText(pdfPath string) bool {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		c.logger.Error("Failed to open PDF for analysis", zap.Error(err))
		return false
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > c.samplePages {
		pages = c.samplePages
	}
	if pages == 0 {
		return false
	}

	totalLen := 0
	for i := 0; i < pages; i++ {
		text, err := doc.Text(i)
		if err != nil {
			c.logger.Warn("Failed to read PDF page", zap.Int("page", i), zap.Error(err))
			continue
		}
		totalLen += len(strings.TrimSpace(text))
	}

	avg := float64(totalLen) / float64(pages)
	extractable := avg > float64(c.textThreshold)

	c.logger.Info("PDF text density",
		zap.Int("chars", totalLen),
		zap.Int("pages_sampled", pages),
		zap.Float64("avg_per_page", avg),
		zap.Bool("text_extractable", extractable))

	return extractable
}
