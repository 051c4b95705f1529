package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimResultWireShape(t *testing.T) {
	result := ClaimResult{
		Documents: []ProcessedDocument{
			{
				Classification: Classification{Filename: "bill.pdf", Type: DocumentTypeBill, Confidence: 0.9},
				Extraction: Extraction{
					Filename:   "bill.pdf",
					Type:       DocumentTypeBill,
					Fields:     Fields{"total_amount": 675.0},
					Confidence: 0.8,
				},
			},
			{
				Classification: Classification{Filename: "scan.pdf", Type: DocumentTypeUnknown},
				Extraction: Extraction{
					Filename: "scan.pdf",
					Type:     DocumentTypeUnknown,
					Warnings: []string{WarningUnclassified},
				},
			},
		},
		Validation:     ValidationReport{IsValid: true},
		Decision:       ClaimDecision{Status: ClaimStatusApproved, Reason: "ok", Confidence: 0.4},
		ProcessingTime: 1500 * time.Millisecond,
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"documents": [
			{"type": "bill", "filename": "bill.pdf", "confidence": 0.8, "extracted_data": {"total_amount": 675}},
			{"type": "unknown", "filename": "scan.pdf", "confidence": 0, "extracted_data": {}, "warnings": ["unclassified-document-type"]}
		],
		"structured_data": {
			"documents": [{"type": "bill", "filename": "bill.pdf", "data": {"total_amount": 675}}],
			"summary": {"total_documents": 2, "processed_successfully": 1, "processing_errors": 1}
		},
		"validation": {"missing_documents": [], "discrepancies": [], "warnings": [], "is_valid": true},
		"claim_decision": {"status": "approved", "reason": "ok", "confidence": 0.4},
		"processing_time": 1.5
	}`, string(raw))
}

func TestClaimResultSurvivesPersistence(t *testing.T) {
	original := ClaimResult{
		Documents: []ProcessedDocument{{
			Classification: Classification{Filename: "card.pdf", Type: DocumentTypeIDCard},
			Extraction: Extraction{
				Filename:   "card.pdf",
				Type:       DocumentTypeIDCard,
				Fields:     Fields{"coverage_dates": []string{"2024-01-01", "2024-12-31"}},
				Confidence: 0.7,
			},
		}},
		Decision: ClaimDecision{Status: ClaimStatusRejected, Reason: "Missing required documents: bill", Confidence: 0.9},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)
	var decoded ClaimResult
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Len(t, decoded.Documents, 1)
	doc := decoded.Documents[0]
	assert.Equal(t, DocumentTypeIDCard, doc.Classification.Type)
	assert.Equal(t, doc.Classification.Type, doc.Extraction.Type)
	assert.Equal(t, []string{"2024-01-01", "2024-12-31"}, doc.Extraction.Fields.Strings("coverage_dates"))
	assert.Equal(t, original.Decision, decoded.Decision)
}

func TestParseDocumentType(t *testing.T) {
	tests := map[string]DocumentType{
		"bill":               DocumentTypeBill,
		" Discharge Summary": DocumentTypeDischargeSummary,
		"ID-card":            DocumentTypeIDCard,
		"insurance_card":     DocumentTypeInsuranceCard,
	}
	for label, want := range tests {
		got, ok := ParseDocumentType(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}

	got, ok := ParseDocumentType("prescription")
	assert.False(t, ok)
	assert.Equal(t, DocumentTypeUnknown, got)
}

func TestClaimResultStructuredDataIsNeverNull(t *testing.T) {
	raw, err := json.Marshal(ClaimResult{})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	structured := body["structured_data"].(map[string]any)
	assert.Equal(t, []any{}, structured["documents"])
	assert.Equal(t, []any{}, body["documents"])
}
