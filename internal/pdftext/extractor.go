// Package pdftext extracts plain text from PDF byte streams.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// ErrExtractionFailed indicates that both extraction strategies failed.
// This is fatal for the paper: no chunks and no metadata are produced.
var ErrExtractionFailed = errors.New("pdf text extraction failed")

// Extractor extracts text from PDFs with a two-strategy fallback:
// the page-tree walk of ledongthuc/pdf first, then docconv's
// layout-analysis extraction if the primary parser rejects the file.
// Scanned/image-only PDFs legitimately yield empty text; that is not
// an error, downstream treats empty text as zero chunks.
type Extractor struct{}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the concatenated text of all pages, trimmed of
// surrounding whitespace. On any primary-strategy failure it retries
// with the fallback strategy; if both fail it returns an error
// wrapping ErrExtractionFailed with the underlying causes.
func (e *Extractor) Extract(data []byte) (string, error) {
	text, primaryErr := extractPrimary(data)
	if primaryErr == nil {
		return strings.TrimSpace(text), nil
	}

	text, fallbackErr := extractFallback(data)
	if fallbackErr == nil {
		return strings.TrimSpace(text), nil
	}

	return "", fmt.Errorf("%w: primary: %v; fallback: %v", ErrExtractionFailed, primaryErr, fallbackErr)
}

// extractPrimary walks the PDF page tree and concatenates page text in
// page order. Per-page extraction errors skip the page rather than
// failing the document; page whitespace is preserved, only the final
// concatenation is trimmed by the caller.
func extractPrimary(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed xref tables and font
	// dictionaries; convert panics into errors so the fallback runs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
	}

	return b.String(), nil
}

// extractFallback runs docconv, which applies layout analysis via
// pdftotext and tolerates files the primary parser cannot read.
func extractFallback(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return "", fmt.Errorf("docconv: %w", err)
	}
	return res.Body, nil
}
