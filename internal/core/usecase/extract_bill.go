package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/llmjson"
)

var billSchema = llmjson.Schema{
	Name: "bill",
	Fields: []llmjson.Field{
		{Name: "hospital_name", Kind: llmjson.KindString},
		{Name: "patient_name", Kind: llmjson.KindString},
		{Name: "patient_id", Kind: llmjson.KindString},
		{Name: "total_amount", Kind: llmjson.KindNumber, Description: "grand total billed"},
		{Name: "date_of_service", Kind: llmjson.KindDate},
		{Name: "services", Kind: llmjson.KindStringList, Description: "one entry per billed service line"},
		{Name: "diagnosis_codes", Kind: llmjson.KindStringList, Description: "ICD codes"},
		{Name: "procedure_codes", Kind: llmjson.KindStringList, Description: "CPT codes"},
		{Name: "account_number", Kind: llmjson.KindString},
		{Name: "billing_address", Kind: llmjson.KindString},
		{Name: "insurance_details", Kind: llmjson.KindString},
		{Name: "confidence", Kind: llmjson.KindNumber},
	},
}

// billCoreFields score completeness when the model reports no confidence.
var billCoreFields = []string{"hospital_name", "patient_name", "total_amount", "date_of_service", "services"}

var billSystemPrompt = extractionSystemPrompt("hospital bill", billSchema)

// BillAgent extracts billing fields from hospital bills and invoices.
type BillAgent struct {
	core agentCore
}

func (a *BillAgent) Extract(ctx context.Context, doc domain.Document, cls domain.Classification) domain.Extraction {
	out := newExtraction(doc, cls)
	parsed, ok := a.core.request(ctx, &out, "extract_bill", billSystemPrompt, doc, billSchema)
	if !ok {
		return out
	}

	c := newFieldCollector(parsed, a.core.rules.DateFormats)
	c.text("hospital_name", "patient_name", "patient_id", "account_number", "billing_address", "insurance_details")
	c.amount("total_amount")
	c.date("date_of_service")
	c.list("services", nil)
	c.list("diagnosis_codes", strings.ToUpper)
	c.list("procedure_codes", strings.ToUpper)
	c.finish(&out, billCoreFields, a.core.rules.FieldPenalty)
	return out
}
