package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

// Below this score extracted text is likely garbled; OCR is out of scope so
// the document is still processed.
const lowTextQuality = 0.5

// LoadDocumentsUseCase extracts text from uploads. A file whose text cannot be
// extracted becomes an empty document so the claim still reports it.
type LoadDocumentsUseCase struct {
	extractor ports.TextExtractor
}

func NewLoadDocumentsUseCase(extractor ports.TextExtractor) *LoadDocumentsUseCase {
	return &LoadDocumentsUseCase{extractor: extractor}
}

func (uc *LoadDocumentsUseCase) Load(ctx context.Context, files []domain.UploadedFile) []domain.Document {
	docs := make([]domain.Document, 0, len(files))
	for _, file := range files {
		doc := domain.Document{
			Filename: file.Filename,
			Size:     int64(len(file.Data)),
		}
		extracted, err := uc.extractor.Extract(ctx, file.Filename, file.Data)
		if err != nil {
			slog.Warn("text_extraction_failed", "filename", file.Filename, "error", err.Error())
		} else {
			doc.Text = extracted.Text
			doc.TextQuality = extracted.Quality
			if doc.Text != "" && doc.TextQuality < lowTextQuality {
				slog.Warn("low_text_quality", "filename", file.Filename, "quality", doc.TextQuality)
			}
		}
		docs = append(docs, doc)
	}
	return docs
}
