package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

type fileExtractorFake struct {
	byName map[string]domain.ExtractedText
	fail   map[string]error
}

func (f fileExtractorFake) Extract(_ context.Context, filename string, _ []byte) (domain.ExtractedText, error) {
	if err, ok := f.fail[filename]; ok {
		return domain.ExtractedText{}, err
	}
	return f.byName[filename], nil
}

func TestLoadDocumentsKeepsOrderAndFailures(t *testing.T) {
	extractor := fileExtractorFake{
		byName: map[string]domain.ExtractedText{
			"bill.pdf": {Text: "Total: 675.00", Quality: 0.9},
			"scan.pdf": {Text: "#$%", Quality: 0.2},
		},
		fail: map[string]error{
			"broken.pdf": domain.WrapError(domain.ErrInvalidInput, "extract pdf", errors.New("corrupt xref")),
		},
	}
	uc := NewLoadDocumentsUseCase(extractor)

	docs := uc.Load(context.Background(), []domain.UploadedFile{
		{Filename: "bill.pdf", Data: []byte("abcd")},
		{Filename: "broken.pdf", Data: []byte("xy")},
		{Filename: "scan.pdf", Data: []byte("z")},
	})

	require.Len(t, docs, 3)
	assert.Equal(t, domain.Document{Filename: "bill.pdf", Text: "Total: 675.00", Size: 4, TextQuality: 0.9}, docs[0])
	assert.Equal(t, domain.Document{Filename: "broken.pdf", Size: 2}, docs[1])
	assert.Equal(t, "scan.pdf", docs[2].Filename)
	assert.Equal(t, "#$%", docs[2].Text)
	assert.InDelta(t, 0.2, docs[2].TextQuality, 1e-9)
}

func TestLoadDocumentsEmptyInput(t *testing.T) {
	uc := NewLoadDocumentsUseCase(fileExtractorFake{})
	docs := uc.Load(context.Background(), nil)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}
