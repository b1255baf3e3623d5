package domain

import (
	"path/filepath"
	"strings"
)

// DocumentMetadata is the structured result of LLM extraction.
type DocumentMetadata struct {
	SuggestedFilename string   `json:"suggested_filename"`
	Sender            string   `json:"sender,omitempty"`
	Recipient         string   `json:"recipient,omitempty"`
	Correspondent     string   `json:"correspondent,omitempty"`
	Category          string   `json:"category,omitempty"`
	DocumentType      string   `json:"document_type,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Language          string   `json:"language,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
	ReferenceNumber   string   `json:"reference_number,omitempty"`
	MonetaryAmounts   []string `json:"monetary_amounts,omitempty"`
}

// Sidecar is the JSON record persisted next to a processed document.
type Sidecar struct {
	DocumentMetadata
	OriginalFilePath  string `json:"original_file_path"`
	ProcessedFilePath string `json:"processed_file_path"`
}

// SafeFilename rejects extracted filenames that could escape the processed
// area. Anything containing a traversal sequence or an absolute path marker
// comes back empty; callers fall back to the stored original name.
func SafeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.Contains(name, "..") {
		return ""
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return ""
	}
	if filepath.IsAbs(name) || strings.Contains(name, ":") {
		return ""
	}
	if strings.ContainsAny(name, "/\\") {
		return ""
	}
	return name
}
