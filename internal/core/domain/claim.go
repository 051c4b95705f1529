package domain

import (
	"encoding/json"
	"time"
)

type ClaimStatus string

const (
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusNeedsReview ClaimStatus = "needs_review"
)

type ValidationReport struct {
	MissingDocuments []string `json:"missing_documents"`
	Discrepancies    []string `json:"discrepancies"`
	Warnings         []string `json:"warnings"`
	IsValid          bool     `json:"is_valid"`
}

type ClaimDecision struct {
	Status     ClaimStatus `json:"status"`
	Reason     string      `json:"reason"`
	Confidence float64     `json:"confidence"`
}

type ProcessedDocument struct {
	Classification Classification
	Extraction     Extraction
}

// ClaimResult is the aggregate returned for one claim request.
type ClaimResult struct {
	Documents      []ProcessedDocument
	Validation     ValidationReport
	Decision       ClaimDecision
	ProcessingTime time.Duration
}

func (r *ClaimResult) Extractions() []Extraction {
	out := make([]Extraction, len(r.Documents))
	for i, doc := range r.Documents {
		out[i] = doc.Extraction
	}
	return out
}

type documentWire struct {
	Type          DocumentType `json:"type"`
	Filename      string       `json:"filename"`
	Confidence    float64      `json:"confidence"`
	ExtractedData Fields       `json:"extracted_data"`
	Warnings      []string     `json:"warnings,omitempty"`
}

type structuredSummary struct {
	TotalDocuments        int `json:"total_documents"`
	ProcessedSuccessfully int `json:"processed_successfully"`
	ProcessingErrors      int `json:"processing_errors"`
}

// structuredDocument lists the fields of one successfully processed document.
type structuredDocument struct {
	Type     DocumentType `json:"type"`
	Filename string       `json:"filename"`
	Data     Fields       `json:"data"`
}

type structuredData struct {
	Documents []structuredDocument `json:"documents"`
	Summary   structuredSummary    `json:"summary"`
}

type claimResultWire struct {
	Documents      []documentWire   `json:"documents"`
	StructuredData structuredData   `json:"structured_data"`
	Validation     ValidationReport `json:"validation"`
	ClaimDecision  ClaimDecision    `json:"claim_decision"`
	ProcessingTime float64          `json:"processing_time"`
}

func (r ClaimResult) MarshalJSON() ([]byte, error) {
	wire := claimResultWire{
		Documents:      make([]documentWire, 0, len(r.Documents)),
		StructuredData: structuredData{Documents: []structuredDocument{}},
		Validation:     r.Validation,
		ClaimDecision:  r.Decision,
		ProcessingTime: r.ProcessingTime.Seconds(),
	}
	for _, doc := range r.Documents {
		fields := doc.Extraction.Fields
		if fields == nil {
			fields = Fields{}
		}
		wire.Documents = append(wire.Documents, documentWire{
			Type:          doc.Classification.Type,
			Filename:      doc.Classification.Filename,
			Confidence:    doc.Extraction.Confidence,
			ExtractedData: fields,
			Warnings:      doc.Extraction.Warnings,
		})
		if doc.Extraction.Failed() {
			wire.StructuredData.Summary.ProcessingErrors++
			continue
		}
		wire.StructuredData.Summary.ProcessedSuccessfully++
		wire.StructuredData.Documents = append(wire.StructuredData.Documents, structuredDocument{
			Type:     doc.Classification.Type,
			Filename: doc.Classification.Filename,
			Data:     fields,
		})
	}
	wire.StructuredData.Summary.TotalDocuments = len(r.Documents)
	wire.Validation.MissingDocuments = nonNil(wire.Validation.MissingDocuments)
	wire.Validation.Discrepancies = nonNil(wire.Validation.Discrepancies)
	wire.Validation.Warnings = nonNil(wire.Validation.Warnings)
	return json.Marshal(wire)
}

func (r *ClaimResult) UnmarshalJSON(data []byte) error {
	var wire claimResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Documents = make([]ProcessedDocument, len(wire.Documents))
	for i, doc := range wire.Documents {
		r.Documents[i] = ProcessedDocument{
			Classification: Classification{
				DocumentIndex: i,
				Filename:      doc.Filename,
				Type:          doc.Type,
				Confidence:    doc.Confidence,
			},
			Extraction: Extraction{
				DocumentIndex: i,
				Filename:      doc.Filename,
				Type:          doc.Type,
				Fields:        doc.ExtractedData,
				Confidence:    doc.Confidence,
				Warnings:      doc.Warnings,
			},
		}
	}
	r.Validation = wire.Validation
	r.Decision = wire.ClaimDecision
	r.ProcessingTime = time.Duration(wire.ProcessingTime * float64(time.Second))
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type ClaimJobStatus string

const (
	ClaimJobSubmitted  ClaimJobStatus = "submitted"
	ClaimJobProcessing ClaimJobStatus = "processing"
	ClaimJobCompleted  ClaimJobStatus = "completed"
	ClaimJobFailed     ClaimJobStatus = "failed"
)

type StoredFile struct {
	Filename   string `json:"filename"`
	StorageKey string `json:"storage_key"`
	Size       int64  `json:"size"`
}

// ClaimJob tracks an asynchronously processed claim.
type ClaimJob struct {
	ID        string         `json:"id"`
	Status    ClaimJobStatus `json:"status"`
	Files     []StoredFile   `json:"files"`
	Result    *ClaimResult   `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ModelCall is one request to the model collaborator. Schema is a JSON Schema
// object describing the expected response.
type ModelCall struct {
	Operation string
	System    string
	Prompt    string
	Schema    map[string]any
}
