package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReaderExcel(t *testing.T) {
	r := NewReader(zap.NewNop())

	t.Run("header row detected below banner rows", func(t *testing.T) {
		buf := buildWorkbook(t, [][]interface{}{
			{"Acme Industries Pvt Ltd"},
			{"PO-GRN Reconciliation Report"},
			{"Period: April 2025"},
			{},
			{"S.No.", "Location", "PO No.", "Supplier Name"},
			{"1", "Mumbai", "PO-1001", "Shree Traders"},
			{"2", "Pune", "PO-1002", "Om Supplies"},
		})

		table, err := r.Read(buf, "report.xlsx")
		require.NoError(t, err)

		assert.Equal(t, []string{"s.no.", "location", "po_no.", "supplier_name"}, table.Columns)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "PO-1001", table.Rows[0]["po_no."])
		assert.Equal(t, "Om Supplies", table.Rows[1]["supplier_name"])
	})

	t.Run("falls back to first row without keywords", func(t *testing.T) {
		buf := buildWorkbook(t, [][]interface{}{
			{"alpha", "beta"},
			{"1", "2"},
		})

		table, err := r.Read(buf, "data.xlsx")
		require.NoError(t, err)

		assert.Equal(t, []string{"alpha", "beta"}, table.Columns)
		assert.Len(t, table.Rows, 1)
	})

	t.Run("empty and sentinel rows dropped", func(t *testing.T) {
		buf := buildWorkbook(t, [][]interface{}{
			{"S.No.", "Location"},
			{"1", "Mumbai"},
			{},
			{"", "orphan value"},
			{"2", "Delhi"},
		})

		table, err := r.Read(buf, "report.xlsx")
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})
}

func TestReaderCSV(t *testing.T) {
	r := NewReader(zap.NewNop())

	t.Run("utf-8 input", func(t *testing.T) {
		csvData := "PO Number,Supplier Name\nPO-1001,Shree Traders\n"

		table, err := r.Read(strings.NewReader(csvData), "export.csv")
		require.NoError(t, err)

		assert.Equal(t, []string{"po_number", "supplier_name"}, table.Columns)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "Shree Traders", table.Rows[0]["supplier_name"])
	})

	t.Run("latin-1 fallback", func(t *testing.T) {
		data := append([]byte("PO Number,Supplier Name\nPO-1001,Caf"), 0xE9, '\n')

		table, err := r.Read(bytes.NewReader(data), "export.csv")
		require.NoError(t, err)

		require.Len(t, table.Rows, 1)
		assert.Equal(t, "Café", table.Rows[0]["supplier_name"])
	})

	t.Run("date columns normalized day-first", func(t *testing.T) {
		csvData := "PO Number,PO Creation Date\nPO-1001,5/4/2025\nPO-1002,garbage\n"

		table, err := r.Read(strings.NewReader(csvData), "export.csv")
		require.NoError(t, err)

		require.Len(t, table.Rows, 2)
		assert.Equal(t, "05/04/2025", table.Rows[0]["po_creation_date"])
		assert.Equal(t, "", table.Rows[1]["po_creation_date"])
	})
}

func TestReaderErrors(t *testing.T) {
	r := NewReader(zap.NewNop())

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := r.Read(strings.NewReader("data"), "notes.txt")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("empty csv", func(t *testing.T) {
		_, err := r.Read(strings.NewReader(""), "empty.csv")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}
