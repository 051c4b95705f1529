package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

func bill(filename string, fields domain.Fields, confidence float64) domain.Extraction {
	return domain.Extraction{Filename: filename, Type: domain.DocumentTypeBill, Fields: fields, Confidence: confidence}
}

func discharge(filename string, fields domain.Fields, confidence float64) domain.Extraction {
	return domain.Extraction{Filename: filename, Type: domain.DocumentTypeDischargeSummary, Fields: fields, Confidence: confidence}
}

func TestValidateConsistentClaim(t *testing.T) {
	uc := NewValidateUseCase(testRules())

	report := uc.Validate([]domain.Extraction{
		bill("bill.pdf", domain.Fields{"patient_name": "John Smith", "total_amount": 675.0, "date_of_service": "2024-01-15"}, 0.9),
		discharge("discharge.pdf", domain.Fields{"patient_name": "JOHN  SMITH", "admission_date": "2024-01-14", "discharge_date": "2024-01-16"}, 0.85),
	})

	assert.True(t, report.IsValid)
	assert.Empty(t, report.MissingDocuments)
	assert.Empty(t, report.Discrepancies)
	assert.Empty(t, report.Warnings)
}

func TestValidateMissingDocuments(t *testing.T) {
	uc := NewValidateUseCase(testRules())

	tests := []struct {
		name    string
		results []domain.Extraction
	}{
		{name: "no bill", results: []domain.Extraction{discharge("d.pdf", domain.Fields{"patient_name": "A"}, 0.9)}},
		{name: "bill without fields", results: []domain.Extraction{bill("b.pdf", domain.Fields{}, 0)}},
		{name: "nothing", results: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := uc.Validate(tc.results)
			assert.Equal(t, []string{"bill"}, report.MissingDocuments)
			assert.False(t, report.IsValid)
		})
	}
}

func TestValidatePatientNames(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		match bool
	}{
		{name: "case and whitespace", a: "John Smith", b: "  john   SMITH ", match: true},
		{name: "titles and punctuation", a: "Dr. John Smith", b: "John Smith", match: true},
		{name: "token order", a: "Smith, John", b: "John Smith", match: true},
		{name: "minor typo", a: "Jonathan Smith", b: "Jonathon Smith", match: true},
		{name: "different people", a: "John Smith", b: "Jane Doe", match: false},
	}

	uc := NewValidateUseCase(testRules())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := uc.Validate([]domain.Extraction{
				bill("bill.pdf", domain.Fields{"patient_name": tc.a, "total_amount": 10.0}, 0.9),
				discharge("discharge.pdf", domain.Fields{"patient_name": tc.b}, 0.9),
			})
			if tc.match {
				assert.Empty(t, report.Discrepancies)
				return
			}
			assert.Equal(t, []string{"patient name mismatch: " + tc.a + " vs " + tc.b}, report.Discrepancies)
			assert.False(t, report.IsValid)
		})
	}
}

func TestValidateReportsEachNamePairOnce(t *testing.T) {
	uc := NewValidateUseCase(testRules())

	report := uc.Validate([]domain.Extraction{
		bill("bill.pdf", domain.Fields{"patient_name": "John Smith", "total_amount": 10.0}, 0.9),
		discharge("d1.pdf", domain.Fields{"patient_name": "Jane Doe"}, 0.9),
		discharge("d2.pdf", domain.Fields{"patient_name": "jane doe"}, 0.9),
	})

	assert.Equal(t, []string{"patient name mismatch: John Smith vs Jane Doe"}, report.Discrepancies)
}

func TestValidateDateWindow(t *testing.T) {
	stay := domain.Fields{"admission_date": "2024-01-10", "discharge_date": "2024-01-12"}
	tests := []struct {
		serviceDate string
		valid       bool
	}{
		{serviceDate: "2024-01-09", valid: true},
		{serviceDate: "2024-01-11", valid: true},
		{serviceDate: "2024-01-13", valid: true},
		{serviceDate: "2024-01-08", valid: false},
		{serviceDate: "2024-01-14", valid: false},
	}

	uc := NewValidateUseCase(testRules())
	for _, tc := range tests {
		t.Run(tc.serviceDate, func(t *testing.T) {
			report := uc.Validate([]domain.Extraction{
				bill("bill.pdf", domain.Fields{"date_of_service": tc.serviceDate, "total_amount": 10.0}, 0.9),
				discharge("discharge.pdf", stay, 0.9),
			})
			assert.Equal(t, tc.valid, report.IsValid, "discrepancies: %v", report.Discrepancies)
			if !tc.valid {
				require.Len(t, report.Discrepancies, 1)
				assert.Contains(t, report.Discrepancies[0], "date of service "+tc.serviceDate+" in bill.pdf outside hospital stay")
			}
		})
	}
}

func TestValidateCoverageDates(t *testing.T) {
	uc := NewValidateUseCase(testRules())
	card := domain.Extraction{
		Filename:   "card.pdf",
		Type:       domain.DocumentTypeInsuranceCard,
		Fields:     domain.Fields{"coverage_dates": []string{"2023-01-01", "2023-12-31"}},
		Confidence: 0.9,
	}

	report := uc.Validate([]domain.Extraction{
		bill("bill.pdf", domain.Fields{"date_of_service": "2024-01-15", "total_amount": 10.0}, 0.9),
		card,
	})

	assert.Equal(t, []string{"date of service 2024-01-15 in bill.pdf outside coverage 2023-01-01 to 2023-12-31 in card.pdf"}, report.Discrepancies)
}

func TestValidateWarningsNeverInvalidate(t *testing.T) {
	uc := NewValidateUseCase(testRules())

	report := uc.Validate([]domain.Extraction{
		bill("bill.pdf", domain.Fields{"patient_name": "John Smith", "total_amount": 250000.0}, 0.2),
		bill("bill2.pdf", domain.Fields{"patient_name": "John Smith"}, 0.9),
		{Filename: "scan.pdf", Type: domain.DocumentTypeUnknown, Fields: domain.Fields{}, Warnings: []string{"unclassified-document-type"}},
	})

	assert.True(t, report.IsValid)
	assert.Equal(t, []string{
		"low confidence (0.20) for bill.pdf",
		"unusually high amount (250000.00) in bill: bill.pdf",
		"missing total amount in bill: bill2.pdf",
		"low confidence (0.00) for scan.pdf",
		"scan.pdf: unclassified-document-type",
	}, report.Warnings)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
	assert.InDelta(t, 1-1.0/6, similarity("kitten", "sitten"), 1e-9)
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
}
