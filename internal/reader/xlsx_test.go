package reader

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/teklifbul/intake/internal/model"
)

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().Value = c
	}
}

// buildWorkbook assembles the conventional two-sheet request form: a demand
// info sheet followed by an item sheet.
func buildWorkbook(t *testing.T, itemRows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()

	info, err := f.AddSheet("Talep")
	require.NoError(t, err)
	addRow(info, "Talep Kodu", "TLP-2026-001")
	addRow(info, "Başlık", "Atölye Sarf Malzemeleri")
	addRow(info, "Talep Eden", "Ayşe Yılmaz")
	addRow(info, "Talep Tarihi", "01.08.2026")
	addRow(info, "Termin", "15.09.2026")
	addRow(info, "Para Birimi", "TL")

	items, err := f.AddSheet("Kalemler")
	require.NoError(t, err)
	addRow(items, "Satın Alma Talep Formu")
	addRow(items, "")
	addRow(items, "Ürün Adı", "Miktar", "Birim", "Marka", "Model", "Birim Fiyat", "KDV")
	for _, r := range itemRows {
		addRow(items, r...)
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestXLSX_Parse(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"Vida M6", "100", "adet", "", "", "0,50", "18"},
		{"Somun M6", "200", "adet", "", "", "0,30", ""},
	})

	doc, err := NewXLSX(nil).Parse(context.Background(), buf)
	require.NoError(t, err)

	assert.Equal(t, model.FormatXLSX, doc.Format)
	assert.Equal(t, "TLP-2026-001", doc.Demand.Code)
	assert.Equal(t, "Atölye Sarf Malzemeleri", doc.Demand.Title)
	assert.Equal(t, "Ayşe Yılmaz", doc.Demand.Requester)
	assert.Equal(t, "2026-08-01", doc.Demand.DemandDate)
	assert.Equal(t, "2026-09-15", doc.Demand.DueDate)
	assert.Equal(t, "TRY", doc.Demand.Currency)

	assert.Equal(t, 2, doc.HeaderRow)
	require.Len(t, doc.Headers, 7)
	assert.Equal(t, "Ürün Adı", doc.Headers[0])

	require.Len(t, doc.Items, 2)
	first := doc.Items[0]
	assert.Equal(t, "Vida M6", first.ItemName)
	require.NotNil(t, first.Qty)
	assert.InDelta(t, 100, *first.Qty, 1e-9)
	assert.Equal(t, "adet", first.Unit)
	require.NotNil(t, first.UnitPriceExcl)
	assert.InDelta(t, 0.5, *first.UnitPriceExcl, 1e-9)
	require.NotNil(t, first.VatPct)
	assert.InDelta(t, 18, *first.VatPct, 1e-9)
	assert.Equal(t, "TRY", first.Currency)

	// Missing VAT falls back to the statutory default.
	require.NotNil(t, doc.Items[1].VatPct)
	assert.InDelta(t, 18, *doc.Items[1].VatPct, 1e-9)

	// The matrix holds only data rows, header excluded.
	require.Len(t, doc.Matrix, 2)
	assert.Equal(t, "Vida M6", doc.Matrix[0][0])
}

func TestXLSX_SkipsRowsMissingRequiredFields(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"Vida M6", "100", "adet"},
		{"Conta"}, // name only, no qty or unit
	})

	doc, err := NewXLSX(nil).Parse(context.Background(), buf)
	require.NoError(t, err)

	require.Len(t, doc.Items, 1)
	require.Len(t, doc.Matrix, 2) // skipped rows stay visible in the matrix

	// The "Conta" row is 1-based sheet row 5 (banner, blank, header, Vida, Conta).
	found := false
	for _, w := range doc.Warnings {
		if w == "rows skipped due to missing required fields: 5" {
			found = true
		}
	}
	assert.True(t, found, "expected skipped-row warning, got %v", doc.Warnings)
}

func TestXLSX_NoItemsWarning(t *testing.T) {
	buf := buildWorkbook(t, nil)

	doc, err := NewXLSX(nil).Parse(context.Background(), buf)
	require.NoError(t, err)

	assert.Empty(t, doc.Items)
	assert.Contains(t, doc.Warnings, "no items detected; make header rows explicit or use the spreadsheet template")
	assert.Less(t, doc.Confidence, 60)
}

func TestXLSX_FieldCandidatesFromInfoSheet(t *testing.T) {
	buf := buildWorkbook(t, [][]string{{"Vida M6", "100", "adet"}})

	doc, err := NewXLSX(nil).Parse(context.Background(), buf)
	require.NoError(t, err)

	require.NotEmpty(t, doc.FieldCandidates)
	assert.Equal(t, "Talep Kodu", doc.FieldCandidates[0].Label)
	assert.Equal(t, "TLP-2026-001", doc.FieldCandidates[0].Value)
}

func TestXLSX_TitleFallsBackToCode(t *testing.T) {
	f := xlsx.NewFile()

	info, err := f.AddSheet("Talep")
	require.NoError(t, err)
	addRow(info, "", "KOD-7") // A1 empty, B1 set; B2/C2 absent

	items, err := f.AddSheet("Kalemler")
	require.NoError(t, err)
	addRow(items, "Ürün Adı", "Miktar", "Birim")
	addRow(items, "Vida M6", "100", "adet")

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	doc, err := NewXLSX(nil).Parse(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "KOD-7", doc.Demand.Title)

	// An entirely empty info block gets the placeholder title.
	f = xlsx.NewFile()
	info, err = f.AddSheet("Talep")
	require.NoError(t, err)
	addRow(info, "")
	items, err = f.AddSheet("Kalemler")
	require.NoError(t, err)
	addRow(items, "Ürün Adı", "Miktar", "Birim")
	addRow(items, "Vida M6", "100", "adet")

	buf.Reset()
	require.NoError(t, f.Write(&buf))

	doc, err = NewXLSX(nil).Parse(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Talep Başlığı", doc.Demand.Title)
}

func TestXLSX_InvalidBuffer(t *testing.T) {
	_, err := NewXLSX(nil).Parse(context.Background(), []byte("not a workbook"))
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, model.FormatXLSX, Detect("talep.xlsx", ""))
	assert.Equal(t, model.FormatXLSX, Detect("TALEP.XLSX", ""))
	assert.Equal(t, model.FormatDOCX, Detect("talep.docx", ""))
	assert.Equal(t, model.FormatPDF, Detect("talep.pdf", ""))
	assert.Equal(t, model.FormatXLSX, Detect("upload", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.Equal(t, model.FormatDOCX, Detect("upload", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.Equal(t, model.FormatPDF, Detect("upload", "application/octet-stream"))
}
