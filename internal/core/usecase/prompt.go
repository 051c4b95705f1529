package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/llmjson"
)

const classifySystemPrompt = `You classify medical insurance claim documents.
Return strict JSON object with keys:
document_type (one of: bill, discharge_summary, id_card, insurance_card, unknown), confidence (number from 0 to 1), reasoning (string).
No markdown, no extra keys.`

const extractionSystemTemplate = `You extract structured data from a %s of a medical insurance claim.
Return strict JSON object with keys:
%s
confidence (number from 0 to 1).
Use null for values that are not present in the document. Dates as YYYY-MM-DD.
No markdown, no extra keys.`

func extractionSystemPrompt(documentName string, schema llmjson.Schema) string {
	var keys strings.Builder
	for _, field := range schema.Fields {
		if field.Name == "confidence" {
			continue
		}
		keys.WriteString(fmt.Sprintf("%s (%s)", field.Name, field.Kind))
		if field.Description != "" {
			keys.WriteString(": " + field.Description)
		}
		keys.WriteString("\n")
	}
	return fmt.Sprintf(extractionSystemTemplate, documentName, strings.TrimRight(keys.String(), "\n"))
}

func buildDocumentPrompt(doc domain.Document, maxChars int) string {
	return fmt.Sprintf("Filename: %s\n\nDocument:\n%s", doc.Filename, truncateRunes(doc.Text, maxChars))
}
