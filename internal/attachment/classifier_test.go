package attachment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// pdfBytes assembles a minimal PDF with one page per entry in
// pageTexts. An empty string yields a page without a text layer.
func pdfBytes(t *testing.T, pageTexts ...string) []byte {
	t.Helper()

	var kids []string
	var pageObjects []string
	fontNum := 3 + 2*len(pageTexts)
	for i, text := range pageTexts {
		pageNum := 3 + 2*i
		contentNum := pageNum + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))

		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 50 700 Td (%s) Tj ET", text)
		}
		pageObjects = append(pageObjects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>", contentNum, fontNum),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageTexts)),
	}
	objects = append(objects, pageObjects...)
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, body := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		url         string
		wantFormat  string
		wantExt     string
		wantErr     bool
	}{
		{
			name:       "pdf magic wins over content type",
			data:       []byte("%PDF-1.7 rest"),
			wantFormat: "PDF", wantExt: ".pdf",
		},
		{
			name:       "jpeg magic",
			data:       []byte{0xff, 0xd8, 0xff, 0xe0},
			wantFormat: "JPEG", wantExt: ".jpg",
		},
		{
			name:        "content type fallback",
			data:        []byte("opaque"),
			contentType: "application/pdf",
			wantFormat:  "PDF", wantExt: ".pdf",
		},
		{
			name:       "url suffix fallback",
			data:       []byte("opaque"),
			url:        "https://files.example.com/scan.JPEG",
			wantFormat: "JPEG", wantExt: ".jpg",
		},
		{
			name:    "nothing recognized",
			data:    []byte("opaque"),
			url:     "https://files.example.com/doc.docx",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ext, err := detectFormat(tt.data, tt.contentType, tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestDownloadAndAnalyze(t *testing.T) {
	t.Run("valid png", func(t *testing.T) {
		data := pngBytes(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(data)
		}))
		defer srv.Close()

		c := NewClassifier(srv.Client(), 0, 0, zap.NewNop())
		result, err := c.DownloadAndAnalyze(context.Background(), srv.URL+"/scan.png")
		require.NoError(t, err)
		defer c.Cleanup(result)

		assert.Equal(t, models.FileTypeImage, result.FileType)
		assert.Equal(t, "PNG", result.DetectedFormat)
		assert.Equal(t, ".png", result.OriginalExt)
		assert.Equal(t, int64(len(data)), result.FileSize)

		_, statErr := os.Stat(result.TempPath)
		assert.NoError(t, statErr)
	})

	t.Run("text pdf routed to direct extraction", func(t *testing.T) {
		data := pdfBytes(t, strings.Repeat("Tax Invoice Number 884 Grand Total 118000 ", 5))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(data)
		}))
		defer srv.Close()

		c := NewClassifier(srv.Client(), 0, 0, zap.NewNop())
		result, err := c.DownloadAndAnalyze(context.Background(), srv.URL+"/invoice.pdf")
		require.NoError(t, err)
		defer c.Cleanup(result)

		assert.Equal(t, models.FileTypePDFText, result.FileType)
		assert.Equal(t, "PDF", result.DetectedFormat)
		assert.Equal(t, methodTextExtraction, result.ProcessingMethod)
	})

	t.Run("scanned pdf routed to ocr", func(t *testing.T) {
		data := pdfBytes(t, "")
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(data)
		}))
		defer srv.Close()

		c := NewClassifier(srv.Client(), 0, 0, zap.NewNop())
		result, err := c.DownloadAndAnalyze(context.Background(), srv.URL+"/scan.pdf")
		require.NoError(t, err)
		defer c.Cleanup(result)

		assert.Equal(t, models.FileTypePDFImage, result.FileType)
		assert.Equal(t, methodPDFOCR, result.ProcessingMethod)
	})

	t.Run("corrupt image removes temp file", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("not a png"))
		}))
		defer srv.Close()

		c := NewClassifier(srv.Client(), 0, 0, zap.NewNop())
		_, err := c.DownloadAndAnalyze(context.Background(), srv.URL+"/scan")
		assert.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("unsupported format", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("plain text body"))
		}))
		defer srv.Close()

		c := NewClassifier(srv.Client(), 0, 0, zap.NewNop())
		_, err := c.DownloadAndAnalyze(context.Background(), srv.URL+"/notes")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		c := NewClassifier(srv.Client(), 0, 0, zap.NewNop())
		_, err := c.DownloadAndAnalyze(context.Background(), srv.URL+"/gone.pdf")
		assert.Error(t, err)
	})
}

func TestCleanup(t *testing.T) {
	c := NewClassifier(nil, 0, 0, zap.NewNop())

	tmp, err := os.CreateTemp(t.TempDir(), "attachment_*.pdf")
	require.NoError(t, err)
	tmp.Close()

	result := &Classification{TempPath: tmp.Name()}
	c.Cleanup(result)

	_, statErr := os.Stat(tmp.Name())
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, result.TempPath)

	c.Cleanup(nil)
	c.Cleanup(&Classification{})
}
