package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/llmjson"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

// defaultModelConfidence is used when the model names a type without a confidence.
const defaultModelConfidence = 0.5

var classifySchema = llmjson.Schema{
	Name: "classification",
	Fields: []llmjson.Field{
		{Name: "document_type", Kind: llmjson.KindString},
		{Name: "confidence", Kind: llmjson.KindNumber},
		{Name: "reasoning", Kind: llmjson.KindString},
	},
}

type filenameRule struct {
	docType  domain.DocumentType
	keywords []string
}

var filenameRules = []filenameRule{
	{docType: domain.DocumentTypeBill, keywords: []string{"bill", "invoice", "payment", "charge", "receipt"}},
	{docType: domain.DocumentTypeDischargeSummary, keywords: []string{"discharge", "summary"}},
	{docType: domain.DocumentTypeInsuranceCard, keywords: []string{"insurance", "policy", "member"}},
	{docType: domain.DocumentTypeIDCard, keywords: []string{"id", "identity"}},
}

type ClassifyUseCase struct {
	model    ports.ModelInvoker
	rules    domain.ClaimRules
	maxChars int
}

func NewClassifyUseCase(model ports.ModelInvoker, rules domain.ClaimRules, limits domain.PipelineLimits) *ClassifyUseCase {
	return &ClassifyUseCase{
		model:    model,
		rules:    rules.Normalize(),
		maxChars: limits.Normalize().MaxClassifyChars,
	}
}

// Classify assigns a document type. Model failures degrade to unknown with a
// warning instead of an error.
func (uc *ClassifyUseCase) Classify(ctx context.Context, doc domain.Document) domain.Classification {
	result := domain.Classification{
		Filename: doc.Filename,
		Type:     domain.DocumentTypeUnknown,
	}
	if strings.TrimSpace(doc.Text) == "" {
		result.Warnings = append(result.Warnings, domain.WarningEmptyText)
		return result
	}

	raw, err := uc.model.Generate(ctx, domain.ModelCall{
		Operation: "classify",
		System:    classifySystemPrompt,
		Prompt:    buildDocumentPrompt(doc, uc.maxChars),
		Schema:    classifySchema.JSONSchema(),
	})
	if err != nil {
		result.Warnings = append(result.Warnings, modelFailureWarning(ctx, err))
		return result
	}

	parsed := llmjson.Parse(raw, classifySchema)
	if !parsed.Decoded {
		result.Warnings = append(result.Warnings, parsed.Warnings...)
		return result
	}
	label, _ := parsed.Fields["document_type"].(string)
	modelType, ok := domain.ParseDocumentType(label)
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %q", domain.WarningInvalidTypeLabel, label))
		return result
	}

	confidence := defaultModelConfidence
	if reported, ok := parsed.Fields["confidence"].(float64); ok {
		confidence = clamp01(reported)
	}
	result.Type = modelType
	result.Confidence = confidence

	hint, hasHint := filenameHint(doc.Filename)
	switch {
	case hasHint && modelType == domain.DocumentTypeUnknown:
		result.Type = hint
		result.Confidence = uc.rules.FilenameHintConfidence
	case hasHint && modelType == hint:
		result.Confidence = clamp01(confidence + uc.rules.FilenameHintBoost)
	}

	slog.Debug("document_classified",
		"filename", doc.Filename,
		"model_type", modelType,
		"type", result.Type,
		"confidence", result.Confidence,
	)
	return result
}

// filenameHint maps filename keywords to a document type.
func filenameHint(filename string) (domain.DocumentType, bool) {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	tokens := strings.FieldsFunc(base, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, rule := range filenameRules {
		for _, token := range tokens {
			for _, keyword := range rule.keywords {
				if token == keyword || (len(keyword) > 2 && strings.HasPrefix(token, keyword)) {
					return rule.docType, true
				}
			}
		}
	}
	return domain.DocumentTypeUnknown, false
}
