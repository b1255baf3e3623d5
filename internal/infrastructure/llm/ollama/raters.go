package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// Rater asks the model for raw quality verdicts. It reports what the model
// said; acceptance decisions belong to the assessor use case.
type Rater struct {
	client     *Client
	sampleSize int
}

func NewRater(client *Client, sampleSize int) *Rater {
	return &Rater{client: client, sampleSize: sampleSize}
}

func (r *Rater) RateText(ctx context.Context, text string) (domain.QualityVerdict, error) {
	raw, err := r.client.GenerateJSON(ctx, buildQualityPrompt(text, r.sampleSize))
	if err != nil {
		return domain.QualityVerdict{}, err
	}

	var parsed struct {
		QualityScore  int      `json:"quality_score"`
		IsGoodQuality bool     `json:"is_good_quality"`
		Feedback      string   `json:"feedback"`
		Issues        []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &parsed); err != nil {
		return domain.QualityVerdict{}, fmt.Errorf("parse quality json: %w", err)
	}
	return domain.QualityVerdict{
		IsGoodQuality: parsed.IsGoodQuality,
		Score:         parsed.QualityScore,
		Feedback:      parsed.Feedback,
		Issues:        parsed.Issues,
	}, nil
}

func (r *Rater) CompareTexts(ctx context.Context, original, reocr string) (domain.ComparisonVerdict, error) {
	raw, err := r.client.GenerateJSON(ctx, buildComparisonPrompt(original, reocr, r.sampleSize))
	if err != nil {
		return domain.ComparisonVerdict{}, err
	}

	var parsed struct {
		OriginalScore int    `json:"original_score"`
		OCRScore      int    `json:"ocr_score"`
		Preferred     string `json:"preferred"`
	}
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &parsed); err != nil {
		return domain.ComparisonVerdict{}, fmt.Errorf("parse comparison json: %w", err)
	}

	preferred := domain.ComparisonChoice(strings.ToLower(strings.TrimSpace(parsed.Preferred)))
	switch preferred {
	case domain.PreferOriginal, domain.PreferOCR, domain.PreferEqual:
	default:
		// Unexpected values favor the fresh extraction.
		preferred = domain.PreferOCR
	}
	return domain.ComparisonVerdict{
		Preferred:     preferred,
		OriginalScore: parsed.OriginalScore,
		OCRScore:      parsed.OCRScore,
	}, nil
}

// Extractor turns raw document text into structured filing metadata.
type Extractor struct {
	client     *Client
	sampleSize int
}

func NewExtractor(client *Client, sampleSize int) *Extractor {
	return &Extractor{client: client, sampleSize: sampleSize}
}

func (e *Extractor) ExtractMetadata(ctx context.Context, text string) (domain.DocumentMetadata, error) {
	raw, err := e.client.GenerateJSON(ctx, buildMetadataPrompt(text, e.sampleSize))
	if err != nil {
		return domain.DocumentMetadata{}, err
	}

	var meta domain.DocumentMetadata
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &meta); err != nil {
		return domain.DocumentMetadata{}, fmt.Errorf("parse metadata json: %w", err)
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if len(meta.Tags) > 4 {
		meta.Tags = meta.Tags[:4]
	}
	return meta, nil
}

// ExtractJSONBlock pulls the JSON payload out of a model response,
// preferring a fenced code block, then falling back to the substring
// between the first '{' and the last '}'.
func ExtractJSONBlock(raw string) string {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
