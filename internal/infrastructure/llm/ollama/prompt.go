package ollama

import "fmt"

func buildQualityPrompt(text string, maxSample int) string {
	if maxSample <= 0 {
		maxSample = 4000
	}
	sample := text
	if len(sample) > maxSample {
		sample = sample[:maxSample]
	}

	return `You are a text quality inspector for scanned documents.
Return strict JSON object with keys:
quality_score (integer 0-100), is_good_quality (boolean), feedback (string), issues (array of strings).
Possible issues include: excessive typos, garbage characters, incoherent text, fragmented sentences.
No markdown, no extra keys.

Text:
` + sample
}

func buildComparisonPrompt(original, reocr string, maxSample int) string {
	if maxSample <= 0 {
		maxSample = 4000
	}
	a := original
	if len(a) > maxSample {
		a = a[:maxSample]
	}
	b := reocr
	if len(b) > maxSample {
		b = b[:maxSample]
	}

	return fmt.Sprintf(`You compare two extractions of the same document.
Return strict JSON object with keys:
original_score (integer 0-100), ocr_score (integer 0-100), preferred (one of "original", "ocr", "equal").
No markdown, no extra keys.

Original extraction:
%s

New OCR extraction:
%s
`, a, b)
}

func buildMetadataPrompt(text string, maxSample int) string {
	if maxSample <= 0 {
		maxSample = 8000
	}
	sample := text
	if len(sample) > maxSample {
		sample = sample[:maxSample]
	}

	return `You extract filing metadata from business documents.
Return strict JSON object with keys:
suggested_filename (string, no path separators), sender (string), recipient (string),
correspondent (string), category (string), document_type (one of: invoice, receipt, contract, letter, report, statement, other),
tags (array of up to 4 short strings), language (ISO 639-1 code), confidence (number 0-1),
reference_number (string), monetary_amounts (array of strings with currency).
No markdown, no extra keys.

Document:
` + sample
}
