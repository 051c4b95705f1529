package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

// ProcessClaimJobUseCase runs a submitted claim job on the worker side.
type ProcessClaimJobUseCase struct {
	repo      ports.ClaimRepository
	storage   ports.ObjectStorage
	loader    ports.DocumentLoader
	processor ports.ClaimProcessor
}

func NewProcessClaimJobUseCase(
	repo ports.ClaimRepository,
	storage ports.ObjectStorage,
	loader ports.DocumentLoader,
	processor ports.ClaimProcessor,
) *ProcessClaimJobUseCase {
	return &ProcessClaimJobUseCase{
		repo:      repo,
		storage:   storage,
		loader:    loader,
		processor: processor,
	}
}

func (uc *ProcessClaimJobUseCase) ProcessByID(ctx context.Context, claimID string) error {
	if err := uc.markStatus(ctx, claimID, domain.ClaimJobProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processPipeline(ctx, claimID)
	if err != nil {
		if failErr := uc.markFailed(ctx, claimID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResult(ctx, claimID, result); err != nil {
		if failErr := uc.markFailed(ctx, claimID, err); failErr != nil {
			return fmt.Errorf("save claim result: %w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save claim result: %w", err)
	}
	return nil
}

func (uc *ProcessClaimJobUseCase) processPipeline(ctx context.Context, claimID string) (*domain.ClaimResult, error) {
	job, err := uc.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("fetch claim by id: %w", err)
	}

	files, err := uc.readFiles(ctx, job.Files)
	if err != nil {
		return nil, err
	}

	result, err := uc.processor.Process(ctx, uc.loader.Load(ctx, files))
	if err != nil {
		return nil, fmt.Errorf("process claim: %w", err)
	}
	return result, nil
}

func (uc *ProcessClaimJobUseCase) readFiles(ctx context.Context, stored []domain.StoredFile) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(stored))
	for _, file := range stored {
		data, err := uc.readFile(ctx, file.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("read stored file %s: %w", file.Filename, err)
		}
		files = append(files, domain.UploadedFile{Filename: file.Filename, Data: data})
	}
	return files, nil
}

func (uc *ProcessClaimJobUseCase) readFile(ctx context.Context, key string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (uc *ProcessClaimJobUseCase) markStatus(ctx context.Context, claimID string, status domain.ClaimJobStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, claimID, status, errMessage)
}

func (uc *ProcessClaimJobUseCase) markFailed(ctx context.Context, claimID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, claimID, domain.ClaimJobFailed, processErr.Error())
}
