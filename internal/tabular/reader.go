package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat indicates the file extension is not a
	// supported spreadsheet or delimited-text format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnreadableFile indicates no decoding strategy could parse the
	// file.
	ErrUnreadableFile = errors.New("could not read file with any supported encoding")

	// ErrEmptyInput indicates the table has zero usable rows.
	ErrEmptyInput = errors.New("file is empty or contains no data")
)

// headerKeywords are tokens searched for when auto-detecting the
// header row within the first rows of a spreadsheet.
var headerKeywords = []string{
	"s.no.", "location", "po no.", "po_creation_date",
	"supplier_name", "grn_no", "grn_creation_date",
}

// csvEncodings is the ordered decode ladder for delimited text files.
var csvEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8", unicode.UTF8},
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

const headerScanLimit = 15

// Table is a rectangular table with normalized column headers. Each
// row maps normalized header name to the cleaned cell text.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// Empty reports whether the table holds no data rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Reader loads spreadsheet and delimited-text files into tables.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a new tabular reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// Read loads the table from r. The declared filename selects the
// parser: .xlsx/.xls are read as spreadsheets with header-row
// auto-detection, .csv through the encoding ladder.
func (r *Reader) Read(src io.Reader, filename string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		headers []string
		rows    [][]string
		err     error
	)

	switch ext {
	case ".xlsx", ".xls":
		headers, rows, err = r.readExcel(src)
	case ".csv":
		headers, rows, err = r.readCSV(src)
	default:
		return nil, fmt.Errorf("%w: %s (supported: xlsx, xls, csv)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	return r.buildTable(headers, rows), nil
}

// readExcel reads the first sheet, auto-detecting the header row by
// searching the first 15 rows for known header keywords. If none
// match, row 0 is used and a warning is logged.
func (r *Reader) readExcel(src io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyInput
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return nil, nil, ErrEmptyInput
	}

	headerRow := -1
	limit := headerScanLimit
	if len(raw) < limit {
		limit = len(raw)
	}
	for i := 0; i < limit; i++ {
		rowText := strings.ToLower(strings.Join(raw[i], " "))
		for _, kw := range headerKeywords {
			if strings.Contains(rowText, kw) {
				headerRow = i
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}

	if headerRow >= 0 {
		r.logger.Info("Found headers", zap.Int("row", headerRow+1))
	} else {
		r.logger.Warn("Could not detect header row, using default")
		headerRow = 0
	}

	return raw[headerRow], raw[headerRow+1:], nil
}

// readCSV decodes the stream under an ordered list of encodings,
// accepting the first that parses cleanly.
func (r *Reader) readCSV(src io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read input: %w", err)
	}

	for _, e := range csvEncodings {
		if e.enc == unicode.UTF8 && !utf8.Valid(data) {
			continue
		}

		decoded, err := e.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}

		cr := csv.NewReader(bytes.NewReader(decoded))
		cr.FieldsPerRecord = -1
		records, err := cr.ReadAll()
		if err != nil {
			continue
		}
		if len(records) == 0 {
			return nil, nil, ErrEmptyInput
		}

		r.logger.Debug("Decoded CSV", zap.String("encoding", e.name))
		return records[0], records[1:], nil
	}

	return nil, nil, ErrUnreadableFile
}

// buildTable normalizes headers, drops empty/sentinel rows, and
// cleans cell values.
func (r *Reader) buildTable(headers []string, rows [][]string) *Table {
	columns := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = NormalizeHeader(h)
	}

	t := &Table{Columns: columns}
	for _, raw := range rows {
		if isEmptyRow(raw) {
			continue
		}
		// Empty first column is the sentinel for "no data".
		if strings.TrimSpace(raw[0]) == "" {
			continue
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			var cell string
			if i < len(raw) {
				cell = strings.TrimSpace(raw[i])
			}
			if strings.Contains(col, "date") {
				cell = normalizeDate(cell)
			}
			row[col] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// NormalizeHeader trims, lower-cases, and replaces spaces and hyphens
// with underscores.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// dayFirstFormats are tried in order when parsing date cells. The
// day-first convention applies per the source reports.
var dayFirstFormats = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/06",
	"2-1-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// normalizeDate re-emits a date cell as DD/MM/YYYY. Unparseable
// values become empty string, never an error.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	t, ok := parseDayFirst(s)
	if !ok {
		return ""
	}
	return t.Format("02/01/2006")
}

func parseDayFirst(s string) (time.Time, bool) {
	for _, layout := range dayFirstFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
