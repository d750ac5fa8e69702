package reader

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// PdfToText extracts PDF text using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Extract writes the buffer to a temp file and runs pdftotext -layout on it.
func (p *PdfToText) Extract(ctx context.Context, buf []byte) (string, error) {
	dir, err := os.MkdirTemp("", "intake-pdf-*")
	if err != nil {
		return "", eris.Wrap(err, "reader: create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return "", eris.Wrap(err, "reader: write temp pdf")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "reader: pdftotext failed: %s", stderr.String())
	}
	return stdout.String(), nil
}
