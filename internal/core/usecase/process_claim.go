package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

// DocumentClassifier assigns a type to one document.
type DocumentClassifier interface {
	Classify(ctx context.Context, doc domain.Document) domain.Classification
}

// ProcessClaimUseCase runs classification and extraction per document
// concurrently, then validates and decides on the joined results.
type ProcessClaimUseCase struct {
	classifier DocumentClassifier
	agents     AgentSet
	validator  *ValidateUseCase
	decider    *DecideUseCase
	limits     domain.PipelineLimits
}

func NewProcessClaimUseCase(
	classifier DocumentClassifier,
	agents AgentSet,
	validator *ValidateUseCase,
	decider *DecideUseCase,
	limits domain.PipelineLimits,
) *ProcessClaimUseCase {
	return &ProcessClaimUseCase{
		classifier: classifier,
		agents:     agents,
		validator:  validator,
		decider:    decider,
		limits:     limits.Normalize(),
	}
}

func (uc *ProcessClaimUseCase) Process(ctx context.Context, docs []domain.Document) (*domain.ClaimResult, error) {
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process claim", fmt.Errorf("no documents submitted"))
	}
	if len(docs) > uc.limits.MaxDocuments {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process claim",
			fmt.Errorf("%d documents exceed the limit of %d", len(docs), uc.limits.MaxDocuments))
	}

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, uc.limits.RequestTimeout)
	defer cancel()

	documents := uc.join(runCtx, docs, uc.start(runCtx, docs))
	extractions := make([]domain.Extraction, len(documents))
	for i, doc := range documents {
		extractions[i] = doc.Extraction
	}

	report := uc.validator.Validate(extractions)
	decision := uc.decider.Decide(report, extractions)
	result := &domain.ClaimResult{
		Documents:      documents,
		Validation:     report,
		Decision:       decision,
		ProcessingTime: time.Since(started),
	}

	slog.Info("claim_processed",
		"documents", len(documents),
		"status", decision.Status,
		"confidence", decision.Confidence,
		"missing_documents", len(report.MissingDocuments),
		"discrepancies", len(report.Discrepancies),
		"warnings", len(report.Warnings),
		"duration_ms", result.ProcessingTime.Milliseconds(),
	)
	return result, nil
}

// start launches one task per document. Each task reports on its own
// buffered channel so a late task never blocks.
func (uc *ProcessClaimUseCase) start(ctx context.Context, docs []domain.Document) []chan domain.ProcessedDocument {
	sem := semaphore.NewWeighted(int64(uc.limits.MaxConcurrency))
	futures := make([]chan domain.ProcessedDocument, len(docs))
	for i, doc := range docs {
		future := make(chan domain.ProcessedDocument, 1)
		futures[i] = future
		go func(index int, doc domain.Document) {
			if err := sem.Acquire(ctx, 1); err != nil {
				future <- timedOutDocument(index, doc)
				return
			}
			defer sem.Release(1)
			future <- uc.processDocument(ctx, index, doc)
		}(i, doc)
	}
	return futures
}

// join collects results by input index. Once the context is done, tasks get
// CancelGrace to report before they are recorded as timed out.
func (uc *ProcessClaimUseCase) join(ctx context.Context, docs []domain.Document, futures []chan domain.ProcessedDocument) []domain.ProcessedDocument {
	expired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(uc.limits.CancelGrace, func() { close(expired) })
	})
	defer stop()

	out := make([]domain.ProcessedDocument, len(futures))
	for i, future := range futures {
		select {
		case processed := <-future:
			out[i] = processed
		case <-expired:
			select {
			case processed := <-future:
				out[i] = processed
			default:
				slog.Warn("document_timed_out", "filename", docs[i].Filename, "index", i)
				out[i] = timedOutDocument(i, docs[i])
			}
		}
	}
	return out
}

func (uc *ProcessClaimUseCase) processDocument(ctx context.Context, index int, doc domain.Document) domain.ProcessedDocument {
	classification := uc.classifier.Classify(ctx, doc)
	classification.DocumentIndex = index
	classification.Filename = doc.Filename

	extraction := uc.agents.For(classification.Type).Extract(ctx, doc, classification)
	extraction.DocumentIndex = index
	extraction.Filename = doc.Filename
	extraction.Type = classification.Type
	if extraction.Fields == nil {
		extraction.Fields = domain.Fields{}
	}
	if len(classification.Warnings) > 0 {
		extraction.Warnings = append(append([]string(nil), classification.Warnings...), extraction.Warnings...)
	}

	return domain.ProcessedDocument{Classification: classification, Extraction: extraction}
}

func timedOutDocument(index int, doc domain.Document) domain.ProcessedDocument {
	return domain.ProcessedDocument{
		Classification: domain.Classification{
			DocumentIndex: index,
			Filename:      doc.Filename,
			Type:          domain.DocumentTypeUnknown,
		},
		Extraction: domain.Extraction{
			DocumentIndex: index,
			Filename:      doc.Filename,
			Type:          domain.DocumentTypeUnknown,
			Fields:        domain.Fields{},
			Warnings:      []string{domain.WarningTimedOut},
		},
	}
}
