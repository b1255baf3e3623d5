package localtext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// Extractor pulls text out of staged files without any provider calls.
// PDFs read their text layer, spreadsheets flatten rows, text-ish files
// pass through.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, path, mimeType string) (text string, err error) {
	defer func() {
		// The pdf package panics on some malformed inputs.
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("extract text from %s: parser panic: %v", filepath.Base(path), r)
		}
	}()

	switch {
	case mimeType == "application/pdf" || strings.EqualFold(filepath.Ext(path), ".pdf"):
		return extractPDF(path)
	case mimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" ||
		strings.EqualFold(filepath.Ext(path), ".xlsx"):
		return extractXLSX(path)
	case strings.HasPrefix(mimeType, "text/"),
		strings.EqualFold(filepath.Ext(path), ".txt"),
		strings.EqualFold(filepath.Ext(path), ".csv"):
		return extractPlain(path)
	default:
		return "", domain.WrapError(domain.ErrUnsupported, "extract text",
			fmt.Errorf("no local extractor for %s (%s)", filepath.Base(path), mimeType))
	}
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text layer: %w", err)
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("collect pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			builder.WriteString(strings.Join(row, "\t"))
			builder.WriteString("\n")
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

func extractPlain(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnsupported, "extract text",
			fmt.Errorf("%s is not valid utf-8", filepath.Base(path)))
	}
	return strings.TrimSpace(string(raw)), nil
}
