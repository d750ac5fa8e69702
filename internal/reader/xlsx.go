package reader

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
	"github.com/teklifbul/intake/internal/scorer"
)

const (
	headerScanRows     = 30
	candidateScanRows  = 40
	matrixMaxColumns   = 25
	columnMatchMin     = 0.55
	headerTermMatchMin = 0.7
	defaultVatPct      = 18.0
)

// itemSheetRx matches worksheet names that typically hold the line items.
var itemSheetRx = regexp.MustCompile(`kalem|malzeme|item|urun|satir|rows?`)

// columnFields lists every field the column matcher tries to place.
var columnFields = []model.TargetField{
	model.FieldItemName, model.FieldBrand, model.FieldModel,
	model.FieldQty, model.FieldUnit, model.FieldUnitPriceExcl,
	model.FieldVatPct, model.FieldCurrency, model.FieldDeliveryDate,
	model.FieldNote,
}

// XLSXReader extracts purchase-request data from XLSX workbooks.
type XLSXReader struct {
	synonyms map[model.TargetField][]string
}

// NewXLSX creates an XLSXReader. A nil synonyms map uses the defaults.
func NewXLSX(synonyms map[model.TargetField][]string) *XLSXReader {
	if synonyms == nil {
		synonyms = normalize.DefaultSynonyms()
	}
	return &XLSXReader{synonyms: synonyms}
}

func (r *XLSXReader) Format() model.Format { return model.FormatXLSX }

// Parse reads the workbook, recovers demand defaults from the first sheet,
// locates the header row on the item sheet, and extracts the item matrix.
func (r *XLSXReader) Parse(ctx context.Context, buf []byte) (*model.RawDocument, error) {
	file, err := xlsx.OpenBinary(buf)
	if err != nil {
		return nil, eris.Wrap(err, "reader: open xlsx")
	}
	if len(file.Sheets) == 0 {
		return nil, eris.New("reader: xlsx has no sheets")
	}

	first := file.Sheets[0]
	itemSheet := r.pickItemSheet(file)

	doc := &model.RawDocument{Format: model.FormatXLSX, HeaderRow: -1}
	doc.Demand = r.readDemandDefaults(first)
	doc.FieldCandidates = r.readFieldCandidates(first)

	if len(itemSheet.Rows) == 0 {
		return nil, eris.Errorf("reader: item sheet %q is empty", itemSheet.Name)
	}

	headerRow := r.locateHeaderRow(itemSheet)
	doc.HeaderRow = headerRow
	doc.Headers = rowStrings(itemSheet, headerRow)
	colIdx := r.matchColumns(doc.Headers)

	var skipped []int
	for rowNum := headerRow + 1; rowNum < len(itemSheet.Rows); rowNum++ {
		raw := rowStrings(itemSheet, rowNum)
		if len(raw) > matrixMaxColumns {
			raw = raw[:matrixMaxColumns]
		}
		if !anyNonBlank(raw) {
			continue
		}
		doc.Matrix = append(doc.Matrix, raw)

		item := r.buildItem(raw, colIdx, doc.Demand.Currency)
		if rowMeaningful(item) {
			doc.Items = append(doc.Items, item)
		} else {
			skipped = append(skipped, rowNum+1) // 1-based sheet row for the warning
		}
	}

	matched := 0
	for _, idx := range colIdx {
		if idx >= 0 {
			matched++
		}
	}
	coverage := float64(matched) / float64(len(columnFields))
	itemScore := math.Min(float64(len(doc.Items))/5, 1)
	doc.Confidence = int(math.Round(100 * (0.6*coverage + 0.4*itemScore)))

	if doc.Confidence < 60 {
		doc.Warnings = append(doc.Warnings, "low column match; manual mapping review recommended")
	}
	if len(skipped) > 0 {
		doc.Warnings = append(doc.Warnings, skippedRowsWarning(skipped))
	}
	if len(doc.Items) == 0 {
		doc.Warnings = append(doc.Warnings, "no items detected; make header rows explicit or use the spreadsheet template")
	}
	if normalize.DetectCurrency(doc.Demand.Currency) == "" {
		doc.Warnings = append(doc.Warnings, "currency not recognized; TRY assumed")
		doc.Demand.Currency = "TRY"
	}

	zap.L().Debug("reader: xlsx parsed",
		zap.String("item_sheet", itemSheet.Name),
		zap.Int("header_row", headerRow),
		zap.Int("items", len(doc.Items)),
		zap.Int("confidence", doc.Confidence),
	)
	return doc, nil
}

// pickItemSheet prefers a sheet named like an item list, then the second
// sheet, then the first.
func (r *XLSXReader) pickItemSheet(file *xlsx.File) *xlsx.Sheet {
	for _, s := range file.Sheets {
		if itemSheetRx.MatchString(normalize.LowerTR(s.Name)) {
			return s
		}
	}
	if len(file.Sheets) > 1 {
		return file.Sheets[1]
	}
	return file.Sheets[0]
}

// readDemandDefaults reads the conventional header-block cells of the first
// sheet (code B1, title B2/C2/A1/B1, requester B3, dates B4/B5, currency B6).
func (r *XLSXReader) readDemandDefaults(sheet *xlsx.Sheet) model.Demand {
	d := model.Demand{
		Code:       cellText(sheet, 0, 1),
		Title:      cellText(sheet, 1, 1),
		Requester:  cellText(sheet, 2, 1),
		DemandDate: normalize.ParseDate(cellText(sheet, 3, 1)),
		DueDate:    normalize.ParseDate(cellText(sheet, 4, 1)),
	}
	if d.Title == "" {
		d.Title = cellText(sheet, 1, 2)
	}
	if d.Title == "" {
		d.Title = cellText(sheet, 0, 0)
	}
	if d.Title == "" {
		d.Title = cellText(sheet, 0, 1)
	}
	if d.Title == "" {
		d.Title = "Talep Başlığı"
	}
	if cc := normalize.DetectCurrency(cellText(sheet, 5, 1)); cc != "" {
		d.Currency = cc
	} else {
		d.Currency = "TRY"
	}
	return d
}

// readFieldCandidates collects label/value pairs from the first two columns
// of the leading rows of the first sheet.
func (r *XLSXReader) readFieldCandidates(sheet *xlsx.Sheet) []model.FieldCandidate {
	var out []model.FieldCandidate
	limit := len(sheet.Rows)
	if limit > candidateScanRows {
		limit = candidateScanRows
	}
	for row := 0; row < limit; row++ {
		label := cellText(sheet, row, 0)
		value := cellText(sheet, row, 1)
		if label != "" && value != "" {
			out = append(out, model.FieldCandidate{Label: label, Value: value})
		}
	}
	return out
}

// locateHeaderRow scans the leading rows and picks the one with the most
// cells similar to any known synonym. Ties keep the first occurrence.
func (r *XLSXReader) locateHeaderRow(sheet *xlsx.Sheet) int {
	best, bestScore := 0, -1
	limit := len(sheet.Rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for row := 0; row < limit; row++ {
		cells := rowStrings(sheet, row)
		score := 0
		for _, terms := range r.synonyms {
			for _, term := range terms {
				if anySimilar(cells, term) {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = row, score
		}
	}
	return best
}

func anySimilar(cells []string, term string) bool {
	for _, c := range cells {
		if scorer.StringSimilarity(c, term) > headerTermMatchMin {
			return true
		}
	}
	return false
}

// matchColumns picks the best column per field independently. Global
// uniqueness across fields is deferred to the orchestrator.
func (r *XLSXReader) matchColumns(headers []string) map[model.TargetField]int {
	out := make(map[model.TargetField]int, len(columnFields))
	for _, field := range columnFields {
		bestIdx, bestScore := -1, 0.0
		for i, h := range headers {
			s := scorer.StringSimilarity(h, string(field))
			for _, term := range r.synonyms[field] {
				if ts := scorer.StringSimilarity(h, term); ts > s {
					s = ts
				}
			}
			if s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestScore < columnMatchMin {
			bestIdx = -1
		}
		out[field] = bestIdx
	}
	return out
}

// buildItem converts one matrix row into an item using the matched columns.
func (r *XLSXReader) buildItem(row []string, colIdx map[model.TargetField]int, defaultCurrency string) model.Item {
	get := func(f model.TargetField) string {
		idx := colIdx[f]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	item := model.Item{
		ItemName:      get(model.FieldItemName),
		Brand:         get(model.FieldBrand),
		Model:         get(model.FieldModel),
		Qty:           normalize.ParseNumber(get(model.FieldQty)),
		Unit:          get(model.FieldUnit),
		UnitPriceExcl: normalize.ParseNumber(get(model.FieldUnitPriceExcl)),
		VatPct:        normalize.ParseNumber(get(model.FieldVatPct)),
		DeliveryDate:  normalize.ParseDate(get(model.FieldDeliveryDate)),
		Note:          get(model.FieldNote),
	}
	if item.VatPct == nil {
		vat := defaultVatPct
		item.VatPct = &vat
	}
	if cc := normalize.DetectCurrency(get(model.FieldCurrency)); cc != "" {
		item.Currency = cc
	} else {
		item.Currency = defaultCurrency
	}
	return item
}

func skippedRowsWarning(rows []int) string {
	shown := rows
	suffix := ""
	if len(shown) > 10 {
		shown = shown[:10]
		suffix = "…"
	}
	parts := make([]string, len(shown))
	for i, n := range shown {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("rows skipped due to missing required fields: %s%s", strings.Join(parts, ", "), suffix)
}

// cellText resolves a cell to its plain string value. Formula cells fall back
// to the cached computed value; rich text and hyperlink cells resolve to
// their display text via the library's String method.
func cellText(sheet *xlsx.Sheet, row, col int) string {
	if row < 0 || row >= len(sheet.Rows) {
		return ""
	}
	cells := sheet.Rows[row].Cells
	if col < 0 || col >= len(cells) {
		return ""
	}
	c := cells[col]
	s := strings.TrimSpace(c.String())
	if s == "" && c.Value != "" {
		s = strings.TrimSpace(c.Value)
	}
	return s
}

func rowStrings(sheet *xlsx.Sheet, row int) []string {
	if row < 0 || row >= len(sheet.Rows) {
		return nil
	}
	cells := sheet.Rows[row].Cells
	out := make([]string, len(cells))
	for i := range cells {
		out[i] = cellText(sheet, row, i)
	}
	return out
}
