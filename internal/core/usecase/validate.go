package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

var nameTitles = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "dr": {}, "prof": {},
}

// ValidateUseCase reconciles extracted fields across the documents of one claim.
type ValidateUseCase struct {
	rules domain.ClaimRules
}

func NewValidateUseCase(rules domain.ClaimRules) *ValidateUseCase {
	return &ValidateUseCase{rules: rules.Normalize()}
}

func (uc *ValidateUseCase) Validate(results []domain.Extraction) domain.ValidationReport {
	report := domain.ValidationReport{
		MissingDocuments: uc.missingDocuments(results),
	}
	report.Discrepancies = append(report.Discrepancies, uc.nameDiscrepancies(results)...)
	report.Discrepancies = append(report.Discrepancies, uc.dateDiscrepancies(results)...)
	report.Discrepancies = append(report.Discrepancies, uc.coverageDiscrepancies(results)...)
	report.Warnings = uc.warnings(results)
	report.IsValid = len(report.MissingDocuments) == 0 && len(report.Discrepancies) == 0
	return report
}

func (uc *ValidateUseCase) missingDocuments(results []domain.Extraction) []string {
	var missing []string
	for _, required := range uc.rules.RequiredDocuments {
		present := false
		for _, result := range results {
			if result.Type == required && !result.Failed() {
				present = true
				break
			}
		}
		if !present {
			missing = append(missing, string(required))
		}
	}
	return missing
}

type patientName struct {
	raw        string
	normalized []string
}

func (uc *ValidateUseCase) nameDiscrepancies(results []domain.Extraction) []string {
	var names []patientName
	for _, result := range results {
		raw := strings.TrimSpace(result.Fields.String("patient_name"))
		tokens := normalizeName(raw)
		if len(tokens) == 0 {
			continue
		}
		names = append(names, patientName{raw: raw, normalized: tokens})
	}

	var discrepancies []string
	reported := make(map[string]struct{})
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if namesMatch(names[i].normalized, names[j].normalized, uc.rules.NameMatchThreshold) {
				continue
			}
			key := pairKey(strings.Join(names[i].normalized, " "), strings.Join(names[j].normalized, " "))
			if _, seen := reported[key]; seen {
				continue
			}
			reported[key] = struct{}{}
			discrepancies = append(discrepancies, fmt.Sprintf("patient name mismatch: %s vs %s", names[i].raw, names[j].raw))
		}
	}
	return discrepancies
}

func (uc *ValidateUseCase) dateDiscrepancies(results []domain.Extraction) []string {
	slack := time.Duration(uc.rules.DateWindowSlackDays) * 24 * time.Hour
	var discrepancies []string
	for _, bill := range byType(results, domain.DocumentTypeBill) {
		serviceDate, ok := fieldDate(bill.Fields, "date_of_service")
		if !ok {
			continue
		}
		for _, discharge := range byType(results, domain.DocumentTypeDischargeSummary) {
			admitted, okAdmission := fieldDate(discharge.Fields, "admission_date")
			discharged, okDischarge := fieldDate(discharge.Fields, "discharge_date")
			if !okAdmission || !okDischarge {
				continue
			}
			if serviceDate.Before(admitted.Add(-slack)) || serviceDate.After(discharged.Add(slack)) {
				discrepancies = append(discrepancies, fmt.Sprintf(
					"date of service %s in %s outside hospital stay %s to %s in %s",
					serviceDate.Format(isoDate), bill.Filename,
					admitted.Format(isoDate), discharged.Format(isoDate), discharge.Filename,
				))
			}
		}
	}
	return discrepancies
}

func (uc *ValidateUseCase) coverageDiscrepancies(results []domain.Extraction) []string {
	var cards []domain.Extraction
	cards = append(cards, byType(results, domain.DocumentTypeIDCard)...)
	cards = append(cards, byType(results, domain.DocumentTypeInsuranceCard)...)

	var discrepancies []string
	for _, bill := range byType(results, domain.DocumentTypeBill) {
		serviceDate, ok := fieldDate(bill.Fields, "date_of_service")
		if !ok {
			continue
		}
		for _, card := range cards {
			coverage := card.Fields.Strings("coverage_dates")
			if len(coverage) != 2 {
				continue
			}
			start, okStart := parseISODate(coverage[0])
			end, okEnd := parseISODate(coverage[1])
			if !okStart || !okEnd {
				continue
			}
			if serviceDate.Before(start) || serviceDate.After(end) {
				discrepancies = append(discrepancies, fmt.Sprintf(
					"date of service %s in %s outside coverage %s to %s in %s",
					serviceDate.Format(isoDate), bill.Filename,
					coverage[0], coverage[1], card.Filename,
				))
			}
		}
	}
	return discrepancies
}

func (uc *ValidateUseCase) warnings(results []domain.Extraction) []string {
	var warnings []string
	for _, result := range results {
		if result.Confidence < uc.rules.MinConfidence {
			warnings = append(warnings, fmt.Sprintf("low confidence (%.2f) for %s", result.Confidence, result.Filename))
		}
		for _, warning := range result.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", result.Filename, warning))
		}
		if result.Type == domain.DocumentTypeBill && !result.Failed() {
			warnings = append(warnings, uc.amountWarnings(result)...)
		}
	}
	return warnings
}

func (uc *ValidateUseCase) amountWarnings(bill domain.Extraction) []string {
	amount, ok := bill.Fields.Number("total_amount")
	switch {
	case !ok:
		return []string{fmt.Sprintf("missing total amount in bill: %s", bill.Filename)}
	case amount <= 0:
		return []string{fmt.Sprintf("invalid total amount (%.2f) in bill: %s", amount, bill.Filename)}
	case amount > uc.rules.HighAmountThreshold:
		return []string{fmt.Sprintf("unusually high amount (%.2f) in bill: %s", amount, bill.Filename)}
	default:
		return nil
	}
}

func byType(results []domain.Extraction, docType domain.DocumentType) []domain.Extraction {
	var out []domain.Extraction
	for _, result := range results {
		if result.Type == docType {
			out = append(out, result)
		}
	}
	return out
}

func fieldDate(fields domain.Fields, key string) (time.Time, bool) {
	return parseISODate(fields.String(key))
}

func parseISODate(value string) (time.Time, bool) {
	parsed, err := time.Parse(isoDate, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// normalizeName lowercases the name, strips punctuation and honorifics, and
// returns the remaining tokens.
func normalizeName(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)
	var tokens []string
	for _, token := range strings.Fields(cleaned) {
		if _, title := nameTitles[token]; title {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func namesMatch(a, b []string, threshold float64) bool {
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	joinedA := strings.Join(sortedA, " ")
	joinedB := strings.Join(sortedB, " ")
	if joinedA == joinedB {
		return true
	}
	return similarity(strings.Join(a, " "), strings.Join(b, " ")) >= threshold ||
		similarity(joinedA, joinedB) >= threshold
}

// similarity is 1 - levenshtein/maxLen over runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
