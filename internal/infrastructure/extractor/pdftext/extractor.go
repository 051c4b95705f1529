// Package pdftext extracts plain text from uploaded PDF and text files.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

var pdfMagic = []byte("%PDF-")

type Extractor struct {
	maxPages int
}

func New(maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = 200
	}
	return &Extractor{maxPages: maxPages}
}

// Supported reports whether the filename carries an accepted extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}

func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExtractedText{}, err
	}

	var (
		text string
		err  error
	)
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		text, err = e.extractPDF(data)
	case strings.EqualFold(filepath.Ext(filename), ".txt"):
		text, err = extractPlain(filename, data)
	case strings.EqualFold(filepath.Ext(filename), ".pdf"):
		err = domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s is not a PDF document", filename))
	default:
		err = domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported file type: %s", filename))
	}
	if err != nil {
		return domain.ExtractedText{}, err
	}

	text = normalizeText(text)
	return domain.ExtractedText{Text: text, Quality: Quality(text)}, nil
}

func extractPlain(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s is not valid UTF-8 text", filename))
	}
	return string(data), nil
}

func (e *Extractor) extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return "", errors.New("pdf has no pages")
	}
	parts := make([]string, 0, min(pages, e.maxPages))
	for i := 1; i <= pages && i <= e.maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		if strings.TrimSpace(pageText) != "" {
			parts = append(parts, pageText)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
