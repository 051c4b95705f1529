package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

const (
	reasonApproved    = "All required documents present and data is consistent"
	reasonNeedsReview = "Low confidence in extracted data. Manual review required."
)

// DecideUseCase turns a validation report into a claim decision. It never
// recomputes amounts; it only reasons about presence and consistency.
type DecideUseCase struct {
	rules domain.ClaimRules
}

func NewDecideUseCase(rules domain.ClaimRules) *DecideUseCase {
	return &DecideUseCase{rules: rules.Normalize()}
}

func (uc *DecideUseCase) Decide(report domain.ValidationReport, results []domain.Extraction) domain.ClaimDecision {
	average := averageConfidence(results)

	if len(report.MissingDocuments) > 0 {
		return domain.ClaimDecision{
			Status:     domain.ClaimStatusRejected,
			Reason:     "Missing required documents: " + strings.Join(report.MissingDocuments, ", "),
			Confidence: uc.rules.MissingDocumentsConfidence,
		}
	}
	if len(report.Discrepancies) > 0 {
		return domain.ClaimDecision{
			Status:     domain.ClaimStatusRejected,
			Reason:     "Data inconsistencies found: " + boundedList(report.Discrepancies, uc.rules.MaxReasonItems),
			Confidence: average,
		}
	}
	if !report.IsValid {
		return domain.ClaimDecision{
			Status:     domain.ClaimStatusRejected,
			Reason:     "Claim validation failed",
			Confidence: average,
		}
	}
	if average < uc.rules.ReviewConfidence {
		return domain.ClaimDecision{
			Status:     domain.ClaimStatusNeedsReview,
			Reason:     reasonNeedsReview,
			Confidence: average,
		}
	}
	return domain.ClaimDecision{
		Status:     domain.ClaimStatusApproved,
		Reason:     reasonApproved,
		Confidence: average,
	}
}

func averageConfidence(results []domain.Extraction) float64 {
	if len(results) == 0 {
		return 0
	}
	var total float64
	for _, result := range results {
		total += result.Confidence
	}
	return clamp01(total / float64(len(results)))
}

func boundedList(items []string, limit int) string {
	if limit <= 0 || len(items) <= limit {
		return strings.Join(items, "; ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:limit], "; "), len(items)-limit)
}
