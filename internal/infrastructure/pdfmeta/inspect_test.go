package pdfmeta

import (
	"testing"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

func TestClassifyProducer(t *testing.T) {
	cases := []struct {
		name     string
		producer string
		creator  string
		want     domain.TextSource
	}{
		{"empty", "", "", domain.SourceUnknown},
		{"tesseract producer", "Tesseract 5.3.0", "", domain.SourceOCRPrevious},
		{"ocrmypdf creator", "", "ocrmypdf 15.4", domain.SourceOCRPrevious},
		{"finereader mixed case", "ABBYY FineReader 15", "", domain.SourceOCRPrevious},
		{"word producer", "Microsoft Word 2019", "", domain.SourceDigital},
		{"latex creator", "", "LaTeX with hyperref", domain.SourceDigital},
		{"chrome print", "Skia/PDF m120", "Chromium", domain.SourceDigital},
		{"unknown tool", "SomeScanner 1.0", "", domain.SourceUnknown},
		{"ocr wins over digital", "Microsoft Word", "ABBYY FineReader", domain.SourceOCRPrevious},
	}
	for _, tc := range cases {
		if got := ClassifyProducer(tc.producer, tc.creator); got != tc.want {
			t.Fatalf("%s: ClassifyProducer(%q, %q) = %s, want %s",
				tc.name, tc.producer, tc.creator, got, tc.want)
		}
	}
}

func TestDetectTextSourceMissingFile(t *testing.T) {
	inspector := NewInspector()
	if got := inspector.DetectTextSource("/does/not/exist.pdf"); got != domain.SourceUnknown {
		t.Fatalf("DetectTextSource() = %s, want %s", got, domain.SourceUnknown)
	}
}
