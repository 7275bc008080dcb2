package document

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ReadText extracts the text of every page in the PDF at path.
// Pages that fail to render are skipped.
func ReadText(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
