package document

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Kind is the coarse document family detected from a local file.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindUnsupported Kind = "unsupported"
)

var (
	pdfExtensions   = map[string]bool{".pdf": true}
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true,
		".tiff": true, ".bmp": true,
	}
)

// Classification is the outcome of inspecting a local document.
// Processable means the file can go through text extraction: a PDF
// with extractable text on its first page, or a decodable image.
type Classification struct {
	Kind        Kind
	Processable bool
	Reason      string
}

// Classifier inspects local files and decides whether they can be
// processed. It reports outcomes, never errors; a broken file is an
// unprocessable classification.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a document classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify inspects the file at path.
func (c *Classifier) Classify(path string) Classification {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case pdfExtensions[ext]:
		ok, reason := c.hasExtractableText(path)
		return Classification{Kind: KindPDF, Processable: ok, Reason: reason}
	case imageExtensions[ext]:
		ok, reason := c.isDecodableImage(path)
		return Classification{Kind: KindImage, Processable: ok, Reason: reason}
	default:
		return Classification{
			Kind:   KindUnsupported,
			Reason: "unsupported extension " + ext,
		}
	}
}

// hasExtractableText opens the PDF and checks the first page for
// non-whitespace text. Scanned PDFs come back false.
func (c *Classifier) hasExtractableText(path string) (bool, string) {
	doc, err := fitz.New(path)
	if err != nil {
		c.logger.Warn("Failed to open PDF", zap.String("path", path), zap.Error(err))
		return false, "unreadable pdf"
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return false, "pdf has no pages"
	}

	text, err := doc.Text(0)
	if err != nil {
		c.logger.Warn("Failed to read first page", zap.String("path", path), zap.Error(err))
		return false, "unreadable first page"
	}
	if strings.TrimSpace(text) == "" {
		return false, "no extractable text"
	}
	return true, ""
}

func (c *Classifier) isDecodableImage(path string) (bool, string) {
	f, err := os.Open(path)
	if err != nil {
		return false, "unreadable file"
	}
	defer f.Close()

	if _, _, err := image.Decode(f); err != nil {
		c.logger.Warn("Failed to decode image", zap.String("path", path), zap.Error(err))
		return false, "invalid image data"
	}
	return true, ""
}
