package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

type SubmitClaimUseCase struct {
	repo         ports.ClaimRepository
	storage      ports.ObjectStorage
	queue        ports.MessageQueue
	maxDocuments int
}

func NewSubmitClaimUseCase(
	repo ports.ClaimRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	limits domain.PipelineLimits,
) *SubmitClaimUseCase {
	return &SubmitClaimUseCase{
		repo:         repo,
		storage:      storage,
		queue:        queue,
		maxDocuments: limits.Normalize().MaxDocuments,
	}
}

// Submit stores the uploads, records a claim job and publishes it for the worker.
func (uc *SubmitClaimUseCase) Submit(ctx context.Context, files []domain.UploadedFile) (*domain.ClaimJob, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit claim", errors.New("no documents submitted"))
	}
	if len(files) > uc.maxDocuments {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit claim",
			fmt.Errorf("%d documents exceed the limit of %d", len(files), uc.maxDocuments))
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	job := &domain.ClaimJob{
		ID:        id,
		Status:    domain.ClaimJobSubmitted,
		Files:     make([]domain.StoredFile, 0, len(files)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, file := range files {
		storageKey := fmt.Sprintf("%s/%02d_%s", id, i, sanitizeFilename(file.Filename))
		if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Data)); err != nil {
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
		job.Files = append(job.Files, domain.StoredFile{
			Filename:   file.Filename,
			StorageKey: storageKey,
			Size:       int64(len(file.Data)),
		})
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create claim job: %w", err)
	}

	if err := uc.queue.PublishClaimSubmitted(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish claim event: %w", err)
	}

	return job, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}
