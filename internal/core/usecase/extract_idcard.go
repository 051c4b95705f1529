package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/llmjson"
)

var idCardSchema = llmjson.Schema{
	Name: "id_card",
	Fields: []llmjson.Field{
		{Name: "patient_name", Kind: llmjson.KindString},
		{Name: "patient_id", Kind: llmjson.KindString},
		{Name: "policy_number", Kind: llmjson.KindString},
		{Name: "member_id", Kind: llmjson.KindString},
		{Name: "group_number", Kind: llmjson.KindString},
		{Name: "insurer_name", Kind: llmjson.KindString},
		{Name: "coverage_dates", Kind: llmjson.KindStringList, Description: "[start date, end date]"},
		{Name: "date_of_birth", Kind: llmjson.KindDate},
		{Name: "phone_number", Kind: llmjson.KindString},
		{Name: "address", Kind: llmjson.KindString},
		{Name: "confidence", Kind: llmjson.KindNumber},
	},
}

var idCardCoreFields = []string{"patient_name", "policy_number", "insurer_name", "coverage_dates"}

var idCardSystemPrompt = extractionSystemPrompt("patient ID or insurance card", idCardSchema)

// IDCardAgent extracts identity and coverage fields from ID and insurance cards.
type IDCardAgent struct {
	core agentCore
}

func (a *IDCardAgent) Extract(ctx context.Context, doc domain.Document, cls domain.Classification) domain.Extraction {
	out := newExtraction(doc, cls)
	parsed, ok := a.core.request(ctx, &out, "extract_id_card", idCardSystemPrompt, doc, idCardSchema)
	if !ok {
		return out
	}

	c := newFieldCollector(parsed, a.core.rules.DateFormats)
	c.text("patient_name", "patient_id", "policy_number", "member_id", "group_number", "insurer_name", "address")
	c.date("date_of_birth")
	a.coverage(c)
	if phone, ok := c.src["phone_number"].(string); ok {
		c.fields["phone_number"] = normalizeUSPhone(phone)
	}

	c.finish(&out, idCardCoreFields, a.core.rules.FieldPenalty)
	return out
}

func (a *IDCardAgent) coverage(c *fieldCollector) {
	values, ok := c.src["coverage_dates"].([]string)
	if !ok {
		return
	}
	if len(values) != 2 {
		c.drop("coverage_dates", "expected [start, end], got %d values", len(values))
		return
	}
	start, okStart := parseDate(values[0], c.formats)
	end, okEnd := parseDate(values[1], c.formats)
	switch {
	case !okStart || !okEnd:
		c.drop("coverage_dates", "unrecognized dates %q", strings.Join(values, ", "))
	case end.Before(start):
		c.drop("coverage_dates", "end %s precedes start %s", end.Format(isoDate), start.Format(isoDate))
	default:
		c.fields["coverage_dates"] = []string{start.Format(isoDate), end.Format(isoDate)}
	}
}

// normalizeUSPhone formats ten-digit numbers as (AAA) BBB-CCCC and leaves
// anything else untouched.
func normalizeUSPhone(raw string) string {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return strings.TrimSpace(raw)
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}
