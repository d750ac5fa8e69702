package reader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
)

// DOCXReader extracts purchase-request data from Word documents. It has no
// layout awareness: the first line is taken as the demand title, the second
// as the requester, and later lines become either label/value candidates or
// delimiter-split item rows. Availability is favored over precision.
type DOCXReader struct{}

// NewDOCX creates a DOCXReader.
func NewDOCX() *DOCXReader { return &DOCXReader{} }

func (r *DOCXReader) Format() model.Format { return model.FormatDOCX }

// Parse extracts the raw paragraph text from word/document.xml and applies
// line-oriented heuristics.
func (r *DOCXReader) Parse(ctx context.Context, buf []byte) (*model.RawDocument, error) {
	text, err := extractDocxText(buf)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	doc := &model.RawDocument{Format: model.FormatDOCX, HeaderRow: -1}
	doc.Demand = model.Demand{Title: "Başlıksız Talep", Currency: "TRY"}
	if len(lines) > 0 {
		doc.Demand.Title = lines[0]
	}
	if len(lines) > 1 {
		doc.Demand.Requester = lines[1]
	}

	for i := 2; i < len(lines); i++ {
		line := lines[i]
		if len(line) < 3 {
			continue
		}

		if label, value, ok := splitLabelValue(line); ok {
			doc.FieldCandidates = append(doc.FieldCandidates, model.FieldCandidate{Label: label, Value: value})
			continue
		}

		parts := splitDelimited(line)
		if len(parts) < 3 {
			continue
		}
		doc.Matrix = append(doc.Matrix, parts)
		doc.Items = append(doc.Items, itemFromParts(parts, doc.Demand.Currency))
	}

	if len(doc.Items) > 0 {
		doc.Confidence = 70
	} else {
		doc.Confidence = 30
		doc.Warnings = append(doc.Warnings, "docx parsing is line-based and imprecise; the spreadsheet format is recommended")
	}

	zap.L().Debug("reader: docx parsed",
		zap.Int("lines", len(lines)),
		zap.Int("items", len(doc.Items)),
	)
	return doc, nil
}

// splitLabelValue splits a "label: value" or "label = value" line. Lines
// whose value side is empty or that have no separator return ok=false.
func splitLabelValue(line string) (label, value string, ok bool) {
	idx := strings.IndexAny(line, ":=")
	if idx <= 0 {
		return "", "", false
	}
	label = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if label == "" || value == "" {
		return "", "", false
	}
	return label, value, true
}

// itemFromParts maps a delimiter-split row onto the conventional column
// order: name, qty, unit, brand, model, price, vat.
func itemFromParts(parts []string, currency string) model.Item {
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	item := model.Item{
		ItemName:      at(0),
		Qty:           normalize.ParseNumber(at(1)),
		Unit:          at(2),
		Brand:         at(3),
		Model:         at(4),
		UnitPriceExcl: normalize.ParseNumber(at(5)),
		VatPct:        normalize.ParseNumber(at(6)),
		Currency:      currency,
	}
	if item.VatPct == nil {
		vat := defaultVatPct
		item.VatPct = &vat
	}
	return item
}

// extractDocxText unpacks the DOCX container and walks word/document.xml,
// emitting text runs with a newline per paragraph.
func extractDocxText(buf []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return "", eris.Wrap(err, "reader: open docx container")
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			if docXML, err = f.Open(); err != nil {
				return "", eris.Wrap(err, "reader: open word/document.xml")
			}
			break
		}
	}
	if docXML == nil {
		return "", eris.New("reader: docx missing word/document.xml")
	}
	defer docXML.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(docXML)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", eris.Wrap(err, "reader: decode word/document.xml")
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				sb.WriteByte('\n')
			case "tab":
				sb.WriteByte('\t')
			}
		}
	}
	return sb.String(), nil
}
