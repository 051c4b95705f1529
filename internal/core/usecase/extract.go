package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/llmjson"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

const isoDate = "2006-01-02"

// Extractor turns one classified document into structured fields. It never
// fails: problems are reported as warnings on the returned extraction.
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document, cls domain.Classification) domain.Extraction
}

// AgentSet is the dispatch table from document type to extraction agent.
type AgentSet struct {
	Bill      Extractor
	Discharge Extractor
	IDCard    Extractor
	Unknown   Extractor
}

func NewAgentSet(model ports.ModelInvoker, rules domain.ClaimRules, limits domain.PipelineLimits) AgentSet {
	core := agentCore{
		model:          model,
		rules:          rules.Normalize(),
		maxPromptChars: limits.Normalize().MaxPromptChars,
	}
	return AgentSet{
		Bill:      &BillAgent{core: core},
		Discharge: &DischargeAgent{core: core},
		IDCard:    &IDCardAgent{core: core},
		Unknown:   &UnknownAgent{},
	}
}

func (s AgentSet) For(docType domain.DocumentType) Extractor {
	switch docType {
	case domain.DocumentTypeBill:
		return s.Bill
	case domain.DocumentTypeDischargeSummary:
		return s.Discharge
	case domain.DocumentTypeIDCard, domain.DocumentTypeInsuranceCard:
		return s.IDCard
	case domain.DocumentTypeUnknown:
		return s.Unknown
	default:
		return s.Unknown
	}
}

type agentCore struct {
	model          ports.ModelInvoker
	rules          domain.ClaimRules
	maxPromptChars int
}

// request runs one model call for an agent. ok is false when the extraction
// must be returned empty; the reason is already recorded on out.
func (a agentCore) request(
	ctx context.Context,
	out *domain.Extraction,
	operation string,
	system string,
	doc domain.Document,
	schema llmjson.Schema,
) (llmjson.Result, bool) {
	if strings.TrimSpace(doc.Text) == "" {
		out.Warnings = append(out.Warnings, domain.WarningEmptyText)
		return llmjson.Result{}, false
	}

	raw, err := a.model.Generate(ctx, domain.ModelCall{
		Operation: operation,
		System:    system,
		Prompt:    buildDocumentPrompt(doc, a.maxPromptChars),
		Schema:    schema.JSONSchema(),
	})
	if err != nil {
		out.Warnings = append(out.Warnings, modelFailureWarning(ctx, err))
		return llmjson.Result{}, false
	}

	parsed := llmjson.Parse(raw, schema)
	if !parsed.Decoded {
		out.Warnings = append(out.Warnings, parsed.Warnings...)
		return parsed, false
	}
	return parsed, true
}

func modelFailureWarning(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.WarningTimedOut
	}
	return fmt.Sprintf("%s: %v", domain.WarningModelCallFailed, err)
}

func newExtraction(doc domain.Document, cls domain.Classification) domain.Extraction {
	return domain.Extraction{
		DocumentIndex: cls.DocumentIndex,
		Filename:      doc.Filename,
		Type:          cls.Type,
		Fields:        domain.Fields{},
	}
}

// fieldCollector copies typed parser output into extraction fields while
// applying per-field business checks.
type fieldCollector struct {
	src      map[string]any
	fields   domain.Fields
	warnings []string
	dropped  int
	formats  []string
}

func newFieldCollector(parsed llmjson.Result, formats []string) *fieldCollector {
	return &fieldCollector{
		src:      parsed.Fields,
		fields:   domain.Fields{},
		warnings: append([]string(nil), parsed.Warnings...),
		dropped:  len(parsed.Warnings),
		formats:  formats,
	}
}

func (c *fieldCollector) drop(name, format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf("field %s: %s", name, fmt.Sprintf(format, args...)))
	c.dropped++
}

func (c *fieldCollector) text(names ...string) {
	for _, name := range names {
		if v, ok := c.src[name].(string); ok {
			c.fields[name] = v
		}
	}
}

func (c *fieldCollector) amount(name string) {
	v, ok := c.src[name].(float64)
	if !ok {
		return
	}
	if v < 0 {
		c.drop(name, "negative amount %.2f", v)
		return
	}
	c.fields[name] = v
}

func (c *fieldCollector) date(name string) (time.Time, bool) {
	raw, ok := c.src[name].(string)
	if !ok {
		return time.Time{}, false
	}
	parsed, ok := parseDate(raw, c.formats)
	if !ok {
		c.drop(name, "unrecognized date %q", raw)
		return time.Time{}, false
	}
	c.fields[name] = parsed.Format(isoDate)
	return parsed, true
}

func (c *fieldCollector) list(name string, transform func(string) string) {
	values, ok := c.src[name].([]string)
	if !ok {
		return
	}
	if cleaned := cleanList(values, transform); len(cleaned) > 0 {
		c.fields[name] = cleaned
	}
}

// confidence combines the model's self-reported confidence (or completeness
// of the agent's core fields when absent) with a penalty per dropped field.
// Optional fields never lower the completeness score.
func (c *fieldCollector) confidence(core []string, penalty float64) float64 {
	if len(c.fields) == 0 {
		return 0
	}
	base := 1.0
	if len(core) > 0 {
		present := 0
		for _, name := range core {
			if _, ok := c.fields[name]; ok {
				present++
			}
		}
		base = float64(present) / float64(len(core))
	}
	if reported, ok := c.src["confidence"].(float64); ok {
		base = reported
	}
	ceiling := 1 - penalty*float64(c.dropped)
	return clamp01(math.Min(base, ceiling))
}

func (c *fieldCollector) finish(out *domain.Extraction, core []string, penalty float64) {
	out.Fields = c.fields
	out.Warnings = append(out.Warnings, c.warnings...)
	out.Confidence = c.confidence(core, penalty)
}

func parseDate(raw string, formats []string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range formats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func cleanList(values []string, transform func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		item := strings.TrimSpace(value)
		if transform != nil {
			item = transform(item)
		}
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
