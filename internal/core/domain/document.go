package domain

import "strings"

// DocumentType is the closed set of claim artifacts the pipeline understands.
type DocumentType string

const (
	DocumentTypeBill             DocumentType = "bill"
	DocumentTypeDischargeSummary DocumentType = "discharge_summary"
	DocumentTypeIDCard           DocumentType = "id_card"
	DocumentTypeInsuranceCard    DocumentType = "insurance_card"
	DocumentTypeUnknown          DocumentType = "unknown"
)

func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeBill,
		DocumentTypeDischargeSummary,
		DocumentTypeIDCard,
		DocumentTypeInsuranceCard,
		DocumentTypeUnknown,
	}
}

// ParseDocumentType maps a model label onto the enum. The second return value
// is false for labels outside the enum.
func ParseDocumentType(label string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, t := range AllDocumentTypes() {
		if string(t) == normalized {
			return t, true
		}
	}
	return DocumentTypeUnknown, false
}

// Document is one extracted input of a claim batch.
type Document struct {
	Filename    string  `json:"filename"`
	Text        string  `json:"text"`
	Size        int64   `json:"size"`
	TextQuality float64 `json:"text_quality"`
}

type ExtractedText struct {
	Text    string
	Quality float64
}

type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Classification struct {
	DocumentIndex int          `json:"-"`
	Filename      string       `json:"filename"`
	Type          DocumentType `json:"type"`
	Confidence    float64      `json:"confidence"`
	Warnings      []string     `json:"-"`
}

// Fields holds extracted values. Values are string, float64 or []string;
// dates are normalized to YYYY-MM-DD strings.
type Fields map[string]any

func (f Fields) String(key string) string {
	v, _ := f[key].(string)
	return v
}

func (f Fields) Number(key string) (float64, bool) {
	v, ok := f[key].(float64)
	return v, ok
}

func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

type Extraction struct {
	DocumentIndex int          `json:"-"`
	Filename      string       `json:"filename"`
	Type          DocumentType `json:"type"`
	Fields        Fields       `json:"extracted_data"`
	Confidence    float64      `json:"confidence"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// Failed reports whether the extraction produced no usable fields.
func (e Extraction) Failed() bool {
	return len(e.Fields) == 0
}

// Warning codes attached to extractions.
const (
	WarningTimedOut         = "timed-out"
	WarningUnclassified     = "unclassified-document-type"
	WarningModelCallFailed  = "model-call-failed"
	WarningEmptyText        = "empty-document-text"
	WarningInvalidTypeLabel = "invalid-type-label"
)
