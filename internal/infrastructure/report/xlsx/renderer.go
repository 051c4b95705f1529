// Package xlsx renders claim results as spreadsheet reports.
package xlsx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

const (
	sheetSummary    = "Summary"
	sheetDocuments  = "Documents"
	sheetValidation = "Validation"
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (r *Renderer) Render(claimID string, result *domain.ClaimResult) ([]byte, error) {
	if result == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "render report", fmt.Errorf("claim %s has no result", claimID))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetDocuments, sheetValidation} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	summary := [][]any{
		{"Claim ID", claimID},
		{"Decision", string(result.Decision.Status)},
		{"Reason", result.Decision.Reason},
		{"Confidence", result.Decision.Confidence},
		{"Valid", result.Validation.IsValid},
		{"Documents", len(result.Documents)},
		{"Processing time (s)", result.ProcessingTime.Seconds()},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), header); err != nil {
		return nil, fmt.Errorf("style summary: %w", err)
	}

	documents := [][]any{{"Filename", "Type", "Confidence", "Extracted data", "Warnings"}}
	for _, doc := range result.Documents {
		documents = append(documents, []any{
			doc.Classification.Filename,
			string(doc.Classification.Type),
			doc.Extraction.Confidence,
			formatFields(doc.Extraction.Fields),
			strings.Join(doc.Extraction.Warnings, "\n"),
		})
	}
	if err := writeRows(f, sheetDocuments, documents); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetDocuments, "A1", "E1", header); err != nil {
		return nil, fmt.Errorf("style documents: %w", err)
	}

	validation := [][]any{{"Kind", "Message"}}
	for _, item := range result.Validation.MissingDocuments {
		validation = append(validation, []any{"missing_document", item})
	}
	for _, item := range result.Validation.Discrepancies {
		validation = append(validation, []any{"discrepancy", item})
	}
	for _, item := range result.Validation.Warnings {
		validation = append(validation, []any{"warning", item})
	}
	if err := writeRows(f, sheetValidation, validation); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetValidation, "A1", "B1", header); err != nil {
		return nil, fmt.Errorf("style validation: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatFields(fields domain.Fields) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		var value string
		switch v := fields[key].(type) {
		case []string:
			value = strings.Join(v, ", ")
		case float64:
			value = fmt.Sprintf("%.2f", v)
		default:
			value = fmt.Sprint(v)
		}
		lines = append(lines, key+": "+value)
	}
	return strings.Join(lines, "\n")
}
