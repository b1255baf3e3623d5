package domain

// TextSource classifies where a document's text layer came from.
type TextSource string

const (
	SourceDigital     TextSource = "DIGITAL"
	SourceOCRPrevious TextSource = "OCR_PREVIOUS"
	SourceUnknown     TextSource = "UNKNOWN"
)

// QualityVerdict is the outcome of scoring an extracted text layer.
type QualityVerdict struct {
	IsGoodQuality bool     `json:"is_good_quality"`
	Score         int      `json:"score"`
	Feedback      string   `json:"feedback,omitempty"`
	Issues        []string `json:"issues,omitempty"`
}

type ComparisonChoice string

const (
	PreferOriginal ComparisonChoice = "original"
	PreferOCR      ComparisonChoice = "ocr"
	PreferEqual    ComparisonChoice = "equal"
)

type ComparisonVerdict struct {
	Preferred     ComparisonChoice `json:"preferred"`
	OriginalScore int              `json:"original_score"`
	OCRScore      int              `json:"ocr_score"`
}
