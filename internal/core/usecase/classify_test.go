package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

func classify(t *testing.T, model *modelFake, filename, text string) domain.Classification {
	t.Helper()
	uc := NewClassifyUseCase(model, testRules(), testLimits())
	return uc.Classify(context.Background(), domain.Document{Filename: filename, Text: text})
}

func TestClassifyUsesModelLabel(t *testing.T) {
	model := staticModel("```json\n{\"document_type\":\"Discharge Summary\",\"confidence\":0.8,\"reasoning\":\"has admission date\"}\n```", nil)

	got := classify(t, model, "scan_001.pdf", "Admission date ...")

	if got.Type != domain.DocumentTypeDischargeSummary || !approxEqual(got.Confidence, 0.8) {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if got.Filename != "scan_001.pdf" {
		t.Fatalf("filename = %q", got.Filename)
	}
}

func TestClassifyBoostsAgreementWithFilename(t *testing.T) {
	model := staticModel(`{"document_type":"bill","confidence":0.75}`, nil)

	got := classify(t, model, "hospital_invoice.pdf", "Total due ...")

	if got.Type != domain.DocumentTypeBill || !approxEqual(got.Confidence, 0.85) {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassifyCapsBoostAtOne(t *testing.T) {
	model := staticModel(`{"document_type":"bill","confidence":0.97}`, nil)

	got := classify(t, model, "bill.pdf", "Total due ...")

	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", got.Confidence)
	}
}

func TestClassifyFallsBackToFilenameHint(t *testing.T) {
	model := staticModel(`{"document_type":"unknown","confidence":0.2}`, nil)

	got := classify(t, model, "member-insurance-card.pdf", "scanned card")

	if got.Type != domain.DocumentTypeInsuranceCard || got.Confidence != testRules().FilenameHintConfidence {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassifyModelDisagreementKeepsModelLabel(t *testing.T) {
	model := staticModel(`{"document_type":"id_card","confidence":0.7}`, nil)

	got := classify(t, model, "bill.pdf", "Name: ... DOB ...")

	if got.Type != domain.DocumentTypeIDCard || !approxEqual(got.Confidence, 0.7) {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassifyFailuresDegradeToUnknown(t *testing.T) {
	tests := []struct {
		name   string
		model  *modelFake
		prefix string
	}{
		{name: "transport error", model: staticModel("", errors.New("dial tcp: refused")), prefix: "model-call-failed"},
		{name: "invalid label", model: staticModel(`{"document_type":"prescription","confidence":0.9}`, nil), prefix: domain.WarningInvalidTypeLabel},
		{name: "missing label", model: staticModel(`{"confidence":0.9}`, nil), prefix: domain.WarningInvalidTypeLabel},
		{name: "truncated", model: staticModel(`{"document_type":"bi`, nil), prefix: "truncated-json"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(t, tc.model, "bill.pdf", "Total due ...")

			if got.Type != domain.DocumentTypeUnknown || got.Confidence != 0 {
				t.Fatalf("unexpected classification: %+v", got)
			}
			if !hasWarning(got.Warnings, tc.prefix) {
				t.Fatalf("warnings = %v, want prefix %q", got.Warnings, tc.prefix)
			}
		})
	}
}

func TestClassifyEmptyTextSkipsModel(t *testing.T) {
	model := staticModel(`{"document_type":"bill","confidence":1}`, nil)

	got := classify(t, model, "bill.pdf", "   \n")

	if model.callCount() != 0 {
		t.Fatalf("model must not be called for empty text")
	}
	if got.Type != domain.DocumentTypeUnknown || got.Confidence != 0 {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassifyTruncatesPrompt(t *testing.T) {
	model := staticModel(`{"document_type":"bill","confidence":0.9}`, nil)

	classify(t, model, "a.pdf", strings.Repeat("x", 5000))

	prompt := model.calls[0].Prompt
	if strings.Count(prompt, "x") != testLimits().MaxClassifyChars {
		t.Fatalf("prompt carries %d text chars, want %d", strings.Count(prompt, "x"), testLimits().MaxClassifyChars)
	}
}

func TestFilenameHint(t *testing.T) {
	tests := map[string]domain.DocumentType{
		"hospital_bill.pdf":        domain.DocumentTypeBill,
		"Invoice-2024.PDF":         domain.DocumentTypeBill,
		"payment_receipt.txt":      domain.DocumentTypeBill,
		"discharge_summary.pdf":    domain.DocumentTypeDischargeSummary,
		"patient_id.pdf":           domain.DocumentTypeIDCard,
		"identity-card.pdf":        domain.DocumentTypeIDCard,
		"insurance_card.pdf":       domain.DocumentTypeInsuranceCard,
		"policy.pdf":               domain.DocumentTypeInsuranceCard,
		"/tmp/uploads/Billing.pdf": domain.DocumentTypeBill,
	}
	for filename, want := range tests {
		got, ok := filenameHint(filename)
		if !ok || got != want {
			t.Fatalf("filenameHint(%q) = %s, %v; want %s", filename, got, ok, want)
		}
	}

	for _, filename := range []string{"scan_001.pdf", "idea.pdf", "document.pdf"} {
		if got, ok := filenameHint(filename); ok {
			t.Fatalf("filenameHint(%q) = %s, want no hint", filename, got)
		}
	}
}
