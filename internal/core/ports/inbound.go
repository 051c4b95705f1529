package ports

import (
	"context"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

// ClaimProcessor is the inbound contract for synchronous claim processing.
type ClaimProcessor interface {
	Process(ctx context.Context, docs []domain.Document) (*domain.ClaimResult, error)
}

// ClaimSubmitter accepts uploads for asynchronous processing.
type ClaimSubmitter interface {
	Submit(ctx context.Context, files []domain.UploadedFile) (*domain.ClaimJob, error)
}

// ClaimReader is the inbound read model for claim jobs.
type ClaimReader interface {
	GetByID(ctx context.Context, id string) (*domain.ClaimJob, error)
}

// ClaimJobProcessor is the inbound contract for the async worker.
type ClaimJobProcessor interface {
	ProcessByID(ctx context.Context, claimID string) error
}

// DocumentLoader turns raw uploads into pipeline documents.
type DocumentLoader interface {
	Load(ctx context.Context, files []domain.UploadedFile) []domain.Document
}
