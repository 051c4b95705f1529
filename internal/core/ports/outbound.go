package ports

import (
	"context"
	"io"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

// ModelInvoker sends one prompt with an output schema and returns the raw
// response text. The response carries no structural guarantee.
type ModelInvoker interface {
	Generate(ctx context.Context, call domain.ModelCall) (string, error)
}

// TextExtractor extracts plain text from raw document bytes.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (domain.ExtractedText, error)
}

// ClaimRepository persists async claim jobs.
type ClaimRepository interface {
	Create(ctx context.Context, job *domain.ClaimJob) error
	GetByID(ctx context.Context, id string) (*domain.ClaimJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.ClaimJobStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result *domain.ClaimResult) error
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes claim submission events.
type MessageQueue interface {
	PublishClaimSubmitted(ctx context.Context, claimID string) error
	SubscribeClaimSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// ReportRenderer renders a claim result into a downloadable report.
type ReportRenderer interface {
	Render(claimID string, result *domain.ClaimResult) ([]byte, error)
	ContentType() string
}
