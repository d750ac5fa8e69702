// Package reader extracts raw row/column matrices and label/value candidates
// from the supported document formats. Each reader is best-effort: it returns
// a RawDocument with usable demand/item defaults even before orchestration,
// and records extraction caveats as warnings instead of failing.
package reader

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/teklifbul/intake/internal/model"
)

var delimiterRx = regexp.MustCompile(`,|\t| {2,}`)

// Reader parses one document format into a RawDocument.
type Reader interface {
	Format() model.Format
	Parse(ctx context.Context, buf []byte) (*model.RawDocument, error)
}

// Detect resolves the document format from the filename extension first,
// then the MIME type, defaulting to PDF as the last resort.
func Detect(filename, mimeType string) model.Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return model.FormatXLSX
	case ".docx":
		return model.FormatDOCX
	case ".pdf":
		return model.FormatPDF
	}

	mime := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mime, "spreadsheet"):
		return model.FormatXLSX
	case strings.Contains(mime, "word"):
		return model.FormatDOCX
	}
	return model.FormatPDF
}

// requiredItemFields is the row-admission rule: a row is an item only when it
// has an item name and either a parsed quantity or a non-empty unit.
func rowMeaningful(item model.Item) bool {
	return item.ItemName != "" && (item.Qty != nil || strings.TrimSpace(item.Unit) != "")
}

func anyNonBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

// splitDelimited splits a text line on commas, tabs, or runs of two or more
// spaces, dropping empty parts.
func splitDelimited(line string) []string {
	parts := delimiterRx.Split(line, -1)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
