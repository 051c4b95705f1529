package usecase

import (
	"context"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

// UnknownAgent handles documents that could not be classified. It never calls the model.
type UnknownAgent struct{}

func (UnknownAgent) Extract(_ context.Context, doc domain.Document, cls domain.Classification) domain.Extraction {
	out := newExtraction(doc, cls)
	out.Warnings = append(out.Warnings, domain.WarningUnclassified)
	return out
}
