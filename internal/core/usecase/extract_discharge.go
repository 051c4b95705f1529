package usecase

import (
	"context"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/llmjson"
)

var dischargeSchema = llmjson.Schema{
	Name: "discharge_summary",
	Fields: []llmjson.Field{
		{Name: "patient_name", Kind: llmjson.KindString},
		{Name: "patient_id", Kind: llmjson.KindString},
		{Name: "hospital_name", Kind: llmjson.KindString},
		{Name: "attending_physician", Kind: llmjson.KindString},
		{Name: "diagnosis", Kind: llmjson.KindString, Description: "primary diagnosis"},
		{Name: "secondary_diagnoses", Kind: llmjson.KindStringList},
		{Name: "admission_date", Kind: llmjson.KindDate},
		{Name: "discharge_date", Kind: llmjson.KindDate},
		{Name: "treatment_summary", Kind: llmjson.KindString},
		{Name: "medications", Kind: llmjson.KindStringList},
		{Name: "procedures", Kind: llmjson.KindStringList},
		{Name: "confidence", Kind: llmjson.KindNumber},
	},
}

var dischargeCoreFields = []string{"patient_name", "diagnosis", "admission_date", "discharge_date", "treatment_summary"}

var dischargeSystemPrompt = extractionSystemPrompt("hospital discharge summary", dischargeSchema)

// DischargeAgent extracts admission and clinical fields from discharge summaries.
type DischargeAgent struct {
	core agentCore
}

func (a *DischargeAgent) Extract(ctx context.Context, doc domain.Document, cls domain.Classification) domain.Extraction {
	out := newExtraction(doc, cls)
	parsed, ok := a.core.request(ctx, &out, "extract_discharge_summary", dischargeSystemPrompt, doc, dischargeSchema)
	if !ok {
		return out
	}

	c := newFieldCollector(parsed, a.core.rules.DateFormats)
	c.text("patient_name", "patient_id", "hospital_name", "attending_physician", "diagnosis", "treatment_summary")
	c.list("secondary_diagnoses", nil)
	c.list("medications", nil)
	c.list("procedures", nil)

	admitted, hasAdmission := c.date("admission_date")
	discharged, hasDischarge := c.date("discharge_date")
	if hasAdmission && hasDischarge && discharged.Before(admitted) {
		delete(c.fields, "discharge_date")
		c.drop("discharge_date", "%s precedes admission_date %s", discharged.Format(isoDate), admitted.Format(isoDate))
	}

	c.finish(&out, dischargeCoreFields, a.core.rules.FieldPenalty)
	return out
}
