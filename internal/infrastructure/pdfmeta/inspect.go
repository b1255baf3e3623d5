package pdfmeta

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// ocrSignatures and digitalSignatures are matched case-insensitively
// against the PDF Producer and Creator fields.
var (
	ocrSignatures = []string{
		"tesseract",
		"abbyy",
		"omnipage",
		"readiris",
		"nuance",
		"ocrmypdf",
		"kofax",
		"finereader",
	}
	digitalSignatures = []string{
		"microsoft word",
		"microsoft excel",
		"microsoft powerpoint",
		"libreoffice",
		"openoffice",
		"pages",
		"latex",
		"pdftex",
		"xetex",
		"luatex",
		"chromium",
		"chrome",
		"skia",
		"prince",
		"wkhtmltopdf",
		"weasyprint",
		"itext",
		"reportlab",
		"fpdf",
		"tcpdf",
		"pdfkit",
		"quartz pdfcontext",
		"cairo",
		"ghostscript",
	}
)

// Inspector reads a PDF's producer/creator metadata to classify where its
// text layer came from. Any read failure yields UNKNOWN so inspection can
// never block the pipeline.
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

func (Inspector) DetectTextSource(path string) (source domain.TextSource) {
	source = domain.SourceUnknown
	defer func() {
		// The pdf package panics on some malformed inputs.
		if r := recover(); r != nil {
			source = domain.SourceUnknown
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return domain.SourceUnknown
	}
	defer f.Close()

	info := reader.Trailer().Key("Info")
	producer := stringValue(info.Key("Producer"))
	creator := stringValue(info.Key("Creator"))

	return ClassifyProducer(producer, creator)
}

// ClassifyProducer applies the signature tables to producer/creator
// strings. OCR signatures win over digital ones: a document regenerated by
// an OCR tool is OCR output no matter what authored it first.
func ClassifyProducer(producer, creator string) domain.TextSource {
	combined := strings.ToLower(producer + " " + creator)
	if strings.TrimSpace(combined) == "" {
		return domain.SourceUnknown
	}

	for _, sig := range ocrSignatures {
		if strings.Contains(combined, sig) {
			return domain.SourceOCRPrevious
		}
	}
	for _, sig := range digitalSignatures {
		if strings.Contains(combined, sig) {
			return domain.SourceDigital
		}
	}
	return domain.SourceUnknown
}

func stringValue(v pdf.Value) string {
	if v.Kind() == pdf.String {
		return v.RawString()
	}
	return ""
}
