package reader

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
)

// TextExtractor turns a PDF buffer into plain text. The concrete extractor
// is resolved once at reader construction; the reader itself works purely on
// extracted text lines.
type TextExtractor interface {
	Extract(ctx context.Context, buf []byte) (string, error)
}

var (
	requesterRx  = regexp.MustCompile(`(?i)(Satınalma\s*Personeli|Talep Eden|İstek Sahibi)\s*[:\n]\s*([^\n]+)`)
	demandDateRx = regexp.MustCompile(`(?i)(Talep\s*Tarihi|Tarih)\s*[:\n]\s*([0-3]?\d[./-][01]?\d[./-](?:20)?\d{2})`)
	dueDateRx    = regexp.MustCompile(`(?i)(Termin|Teslim|Son Tarih)\s*[:\n]\s*([0-3]?\d[./-][01]?\d[./-](?:20)?\d{2})`)
	pnSnRx       = regexp.MustCompile(`(?i)(?:^|\s)(?:P/?N|PN)\s*[: ]\s*([^\n]+?)\s+(?:S/?N|SN)\s*[: ]\s*([^\n]+)`)
	currencyRx   = regexp.MustCompile(`(?i)(TRY|TL|USD|\$|EUR|€|GBP|£)`)
	headerLikeRx = regexp.MustCompile(`(?i)ÜRÜN|KALEM|MALZEME|BİRİM|MİKTAR|FİYAT|KDV`)
)

// pdfSyntheticHeaders is the fixed column labeling the PDF reader reports,
// since extracted text has no real header row.
var pdfSyntheticHeaders = []string{"Ürün Adı", "Miktar", "Birim", "Marka", "Model", "Birim Fiyat", "KDV"}

// PDFReader recognizes two item shapes in extracted PDF text: explicit
// part/serial-number lines, and generic delimiter-split rows.
type PDFReader struct {
	extractor TextExtractor
}

// NewPDF creates a PDFReader using the given text extractor. A nil extractor
// defaults to the local pdftotext binary.
func NewPDF(extractor TextExtractor) *PDFReader {
	if extractor == nil {
		extractor = NewPdfToText("")
	}
	return &PDFReader{extractor: extractor}
}

func (r *PDFReader) Format() model.Format { return model.FormatPDF }

// Parse extracts the text and applies line-oriented item recognition.
func (r *PDFReader) Parse(ctx context.Context, buf []byte) (*model.RawDocument, error) {
	text, err := r.extractor.Extract(ctx, buf)
	if err != nil {
		return nil, eris.Wrap(err, "reader: extract pdf text")
	}
	text = strings.ReplaceAll(text, "\r", "")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	doc := &model.RawDocument{
		Format:    model.FormatPDF,
		HeaderRow: -1,
		Headers:   pdfSyntheticHeaders,
	}
	doc.Demand = r.readDemand(text, lines)

	var items []model.Item

	// Part/serial-number lines yield synthetic single-unit items.
	for _, line := range lines {
		if m := pnSnRx.FindStringSubmatch(line); m != nil {
			qty, vat := 1.0, defaultVatPct
			items = append(items, model.Item{
				ItemName: fmt.Sprintf("P/N: %s S/N: %s", strings.TrimSpace(m[1]), strings.TrimSpace(m[2])),
				Qty:      &qty,
				Unit:     "ADET",
				VatPct:   &vat,
				Currency: doc.Demand.Currency,
			})
		}
	}

	// Generic table-like lines, excluding header keywords and lines already
	// matched by the PN/SN pattern.
	for _, line := range lines {
		if headerLikeRx.MatchString(line) || pnSnRx.MatchString(line) {
			continue
		}
		parts := splitDelimited(line)
		if len(parts) < 3 {
			continue
		}
		if len([]rune(parts[0])) < 3 { // noise guard
			continue
		}
		items = append(items, itemFromParts(parts, doc.Demand.Currency))
	}

	doc.Items = dedupeItems(items)

	switch {
	case len(doc.Items) >= 3:
		doc.Confidence = 85
	case len(doc.Items) > 0:
		doc.Confidence = 65
	default:
		doc.Confidence = 25
		doc.Warnings = append(doc.Warnings,
			"no table detected in pdf text; use PN/SN markers or tab/double-space separated columns, or prefer the spreadsheet format")
	}

	zap.L().Debug("reader: pdf parsed",
		zap.Int("lines", len(lines)),
		zap.Int("items", len(doc.Items)),
		zap.Int("confidence", doc.Confidence),
	)
	return doc, nil
}

func (r *PDFReader) readDemand(text string, lines []string) model.Demand {
	d := model.Demand{Title: "Başlıksız Talep", Currency: "TRY"}
	if len(lines) > 0 {
		d.Title = lines[0]
	}

	if m := requesterRx.FindStringSubmatch(text); m != nil {
		d.Requester = strings.TrimSpace(m[2])
	} else if len(lines) > 1 {
		d.Requester = lines[1]
	}
	if m := demandDateRx.FindStringSubmatch(text); m != nil {
		d.DemandDate = dateOrRaw(m[2])
	}
	if m := dueDateRx.FindStringSubmatch(text); m != nil {
		d.DueDate = dateOrRaw(m[2])
	}
	if m := currencyRx.FindStringSubmatch(text); m != nil {
		if cc := normalize.DetectCurrency(m[1]); cc != "" {
			d.Currency = cc
		}
	}
	return d
}

func dateOrRaw(s string) string {
	if iso := normalize.ParseDate(s); iso != "" {
		return iso
	}
	return strings.TrimSpace(s)
}

// dedupeItems drops repeated items by the composite (name, qty, unit) key.
func dedupeItems(items []model.Item) []model.Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		qty := ""
		if it.Qty != nil {
			qty = fmt.Sprintf("%g", *it.Qty)
		}
		key := it.ItemName + "__" + qty + "__" + it.Unit
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
