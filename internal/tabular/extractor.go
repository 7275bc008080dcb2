package tabular

import (
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rsinha/po-reconciliation/internal/models"
)

// Record is a typed per-row record populated after column
// normalization. Fields not present in the source schema keep their
// zero values; columns with no canonical mapping land in Extra.
type Record struct {
	SNo             int             `json:"s_no,omitempty"`
	Location        string          `json:"location,omitempty"`
	PONumber        string          `json:"po_number,omitempty"`
	PODate          string          `json:"po_date,omitempty"`
	POCreationDate  string          `json:"po_creation_date,omitempty"`
	NoItemInPO      int             `json:"no_item_in_po,omitempty"`
	POAmount        decimal.Decimal `json:"po_amount"`
	POStatus        string          `json:"po_status,omitempty"`
	SupplierName    string          `json:"supplier_name,omitempty"`
	VendorName      string          `json:"vendor_name,omitempty"`
	VendorCode      string          `json:"vendor_code,omitempty"`
	ConcernedPerson string          `json:"concerned_person,omitempty"`

	GRNNumber       string          `json:"grn_number,omitempty"`
	GRNDate         string          `json:"grn_date,omitempty"`
	GRNCreationDate string          `json:"grn_creation_date,omitempty"`
	NoItemInGRN     int             `json:"no_item_in_grn,omitempty"`
	ReceivedStatus  string          `json:"received_status,omitempty"`
	GRNSubtotal     decimal.Decimal `json:"grn_subtotal"`
	GRNTax          decimal.Decimal `json:"grn_tax"`
	GRNAmount       decimal.Decimal `json:"grn_amount"`

	ItemCode         string          `json:"item_code,omitempty"`
	ItemDescription  string          `json:"item_description,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	AcceptedQuantity decimal.Decimal `json:"accepted_quantity"`
	RejectedQuantity decimal.Decimal `json:"rejected_quantity"`
	Unit             string          `json:"unit,omitempty"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	DeliveryDate     string          `json:"delivery_date,omitempty"`
	Status           string          `json:"status,omitempty"`
	BatchNumber      string          `json:"batch_number,omitempty"`
	ExpiryDate       string          `json:"expiry_date,omitempty"`
	Inspector        string          `json:"inspector,omitempty"`
	Remarks          string          `json:"remarks,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// DateRange holds min/max observed dates as DD/MM/YYYY strings.
type DateRange struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	POFrom  string `json:"po_from,omitempty"`
	POTo    string `json:"po_to,omitempty"`
	GRNFrom string `json:"grn_from,omitempty"`
	GRNTo   string `json:"grn_to,omitempty"`
}

// Summary holds aggregate statistics for an extraction.
type Summary struct {
	TotalRecords     int `json:"total_records"`
	UniquePOs        int `json:"unique_pos,omitempty"`
	UniqueGRNs       int `json:"unique_grns,omitempty"`
	UniqueVendors    int `json:"unique_vendors,omitempty"`
	UniqueSuppliers  int `json:"unique_suppliers,omitempty"`
	UniqueLocations  int `json:"unique_locations,omitempty"`

	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalPOAmount    decimal.Decimal `json:"total_po_amount"`
	TotalGRNAmount   decimal.Decimal `json:"total_grn_amount"`
	TotalGRNSubtotal decimal.Decimal `json:"total_grn_subtotal"`
	TotalGRNTax      decimal.Decimal `json:"total_grn_tax"`
	TotalReceivedQty decimal.Decimal `json:"total_received_qty"`
	TotalAcceptedQty decimal.Decimal `json:"total_accepted_qty"`
	TotalRejectedQty decimal.Decimal `json:"total_rejected_qty"`

	POStatusBreakdown       map[string]int `json:"po_status_breakdown,omitempty"`
	ReceivedStatusBreakdown map[string]int `json:"received_status_breakdown,omitempty"`

	DateRange DateRange `json:"date_range"`

	// Columns is populated for unknown-schema extractions only.
	Columns []string `json:"columns,omitempty"`
}

// Metadata describes a processed upload.
type Metadata struct {
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	DetectedType DataType  `json:"detected_data_type"`
	ProcessedAt  time.Time `json:"processed_at"`
	RowCount     int       `json:"rows_processed"`
	Columns      []string  `json:"original_columns"`
}

// Result is the structured outcome of one tabular extraction.
type Result struct {
	DataType      DataType          `json:"data_type"`
	Records       []*Record         `json:"records"`
	Summary       *Summary          `json:"summary"`
	ColumnsMapped map[string]string `json:"columns_mapped,omitempty"`
	TotalRecords  int               `json:"total_records"`
	Metadata      Metadata          `json:"metadata"`
}

// Extractor orchestrates Reader, catalogs and Classifier into
// structured records plus aggregate statistics.
type Extractor struct {
	reader     *Reader
	classifier *Classifier
	catalogs   map[DataType]*Catalog
	logger     *zap.Logger
}

// NewExtractor creates an extractor with the production catalogs and
// indicator sets.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		reader:     NewReader(logger),
		classifier: NewClassifier(DefaultIndicators()),
		catalogs: map[DataType]*Catalog{
			DataTypePurchaseOrder:    POCatalog(),
			DataTypeGoodsReceiptNote: GRNCatalog(),
			DataTypeCombined:         CombinedCatalog(),
		},
		logger: logger,
	}
}

// Extract loads the table from src and produces structured records.
// An unrecognized schema still succeeds with raw cleaned rows tagged
// unknown; an empty table fails with ErrEmptyInput.
func (e *Extractor) Extract(src io.Reader, filename string, size int64) (*Result, error) {
	table, err := e.reader.Read(src, filename)
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, ErrEmptyInput
	}

	dataType := e.classifier.Detect(table.Columns)
	e.logger.Info("Detected data type",
		zap.String("filename", filename),
		zap.String("data_type", string(dataType)))

	var result *Result
	if catalog, ok := e.catalogs[dataType]; ok {
		result = e.process(table, dataType, catalog)
	} else {
		result = e.processUnknown(table)
	}

	result.Metadata = Metadata{
		Filename:     filename,
		FileSize:     size,
		DetectedType: dataType,
		ProcessedAt:  time.Now(),
		RowCount:     len(table.Rows),
		Columns:      table.Columns,
	}
	return result, nil
}

// process renames columns via the catalog mapping, coerces types, and
// computes the per-type summary.
func (e *Extractor) process(table *Table, dataType DataType, catalog *Catalog) *Result {
	columnMap := catalog.Map(table.Columns)

	records := make([]*Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, buildRecord(row, columnMap))
	}

	summary := summarize(dataType, records)

	return &Result{
		DataType:      dataType,
		Records:       records,
		Summary:       summary,
		ColumnsMapped: columnMap,
		TotalRecords:  len(records),
	}
}

// processUnknown keeps the cleaned rows as-is; extraction is
// best-effort, not validating.
func (e *Extractor) processUnknown(table *Table) *Result {
	records := make([]*Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := &Record{Extra: make(map[string]string, len(row))}
		for col, val := range row {
			rec.Extra[col] = val
		}
		records = append(records, rec)
	}

	return &Result{
		DataType:     DataTypeUnknown,
		Records:      records,
		Summary:      &Summary{TotalRecords: len(records), Columns: table.Columns},
		TotalRecords: len(records),
	}
}

// buildRecord maps one cleaned row into a typed record. Missing
// numeric cells become 0, missing text cells stay empty.
func buildRecord(row map[string]string, columnMap map[string]string) *Record {
	rec := &Record{}
	for col, val := range row {
		canonical, mapped := columnMap[col]
		if !mapped {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[col] = val
			continue
		}
		setField(rec, canonical, val)
	}
	return rec
}

func setField(rec *Record, field, val string) {
	switch field {
	case "s_no":
		rec.SNo = toInt(val)
	case "location":
		rec.Location = val
	case "po_number":
		rec.PONumber = val
	case "po_date":
		rec.PODate = val
	case "po_creation_date":
		rec.POCreationDate = val
	case "no_item_in_po":
		rec.NoItemInPO = toInt(val)
	case "po_amount":
		rec.POAmount = toDecimal(val)
	case "po_status":
		rec.POStatus = val
	case "supplier_name":
		rec.SupplierName = val
	case "vendor_name":
		rec.VendorName = val
	case "vendor_code":
		rec.VendorCode = val
	case "concerned_person":
		rec.ConcernedPerson = val
	case "grn_no", "grn_number":
		rec.GRNNumber = val
	case "grn_date":
		rec.GRNDate = val
	case "grn_creation_date":
		rec.GRNCreationDate = val
	case "no_item_in_grn":
		rec.NoItemInGRN = toInt(val)
	case "received_status":
		rec.ReceivedStatus = val
	case "grn_subtotal":
		rec.GRNSubtotal = toDecimal(val)
	case "grn_tax":
		rec.GRNTax = toDecimal(val)
	case "grn_amount":
		rec.GRNAmount = toDecimal(val)
	case "item_code":
		rec.ItemCode = val
	case "item_description":
		rec.ItemDescription = val
	case "quantity":
		rec.Quantity = toDecimal(val)
	case "received_quantity":
		rec.ReceivedQuantity = toDecimal(val)
	case "accepted_quantity":
		rec.AcceptedQuantity = toDecimal(val)
	case "rejected_quantity":
		rec.RejectedQuantity = toDecimal(val)
	case "unit":
		rec.Unit = val
	case "rate":
		rec.Rate = toDecimal(val)
	case "amount":
		rec.Amount = toDecimal(val)
	case "subtotal":
		rec.Subtotal = toDecimal(val)
	case "tax":
		rec.Tax = toDecimal(val)
	case "delivery_date":
		rec.DeliveryDate = val
	case "status":
		rec.Status = val
	case "batch_number":
		rec.BatchNumber = val
	case "expiry_date":
		rec.ExpiryDate = val
	case "inspector":
		rec.Inspector = val
	case "remarks":
		rec.Remarks = val
	default:
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[field] = val
	}
}

func toInt(s string) int {
	d, ok := models.ParseAmount(s)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func toDecimal(s string) decimal.Decimal {
	d, ok := models.ParseAmount(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// summarize computes aggregate statistics for the detected schema.
func summarize(dataType DataType, records []*Record) *Summary {
	s := &Summary{TotalRecords: len(records)}

	pos := map[string]bool{}
	grns := map[string]bool{}
	vendors := map[string]bool{}
	suppliers := map[string]bool{}
	locations := map[string]bool{}

	var poDates, grnDates, dates []string

	for _, r := range records {
		addKey(pos, r.PONumber)
		addKey(grns, r.GRNNumber)
		addKey(vendors, r.VendorName)
		addKey(suppliers, r.SupplierName)
		addKey(locations, r.Location)

		s.TotalAmount = s.TotalAmount.Add(r.Amount)
		s.TotalPOAmount = s.TotalPOAmount.Add(r.POAmount)
		s.TotalGRNAmount = s.TotalGRNAmount.Add(r.GRNAmount)
		s.TotalGRNSubtotal = s.TotalGRNSubtotal.Add(r.GRNSubtotal)
		s.TotalGRNTax = s.TotalGRNTax.Add(r.GRNTax)
		s.TotalReceivedQty = s.TotalReceivedQty.Add(r.ReceivedQuantity)
		s.TotalAcceptedQty = s.TotalAcceptedQty.Add(r.AcceptedQuantity)
		s.TotalRejectedQty = s.TotalRejectedQty.Add(r.RejectedQuantity)

		if r.POStatus != "" {
			if s.POStatusBreakdown == nil {
				s.POStatusBreakdown = map[string]int{}
			}
			s.POStatusBreakdown[r.POStatus]++
		}
		if r.ReceivedStatus != "" {
			if s.ReceivedStatusBreakdown == nil {
				s.ReceivedStatusBreakdown = map[string]int{}
			}
			s.ReceivedStatusBreakdown[r.ReceivedStatus]++
		}

		appendDate(&poDates, r.POCreationDate)
		appendDate(&grnDates, r.GRNCreationDate)
		appendDate(&dates, r.PODate)
		appendDate(&dates, r.GRNDate)
	}

	s.UniquePOs = len(pos)
	s.UniqueGRNs = len(grns)
	s.UniqueVendors = len(vendors)
	s.UniqueSuppliers = len(suppliers)
	s.UniqueLocations = len(locations)

	switch dataType {
	case DataTypeCombined:
		s.DateRange.POFrom, s.DateRange.POTo = dateBounds(poDates)
		s.DateRange.GRNFrom, s.DateRange.GRNTo = dateBounds(grnDates)
	default:
		dates = append(dates, poDates...)
		dates = append(dates, grnDates...)
		s.DateRange.From, s.DateRange.To = dateBounds(dates)
	}

	return s
}

func addKey(set map[string]bool, key string) {
	if key != "" {
		set[key] = true
	}
}

func appendDate(dst *[]string, val string) {
	if val != "" {
		*dst = append(*dst, val)
	}
}

// dateBounds returns the min and max of DD/MM/YYYY date strings by
// actual date order.
func dateBounds(dates []string) (string, string) {
	if len(dates) == 0 {
		return "", ""
	}
	parsed := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if t, ok := parseDayFirst(d); ok {
			parsed = append(parsed, t)
		}
	}
	if len(parsed) == 0 {
		return "", ""
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })
	return parsed[0].Format("02/01/2006"), parsed[len(parsed)-1].Format("02/01/2006")
}
