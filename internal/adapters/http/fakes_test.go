package httpadapter

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/claims-processor/internal/config"
	"github.com/kirillkom/claims-processor/internal/core/domain"
)

type loaderFake struct{}

func (loaderFake) Load(_ context.Context, files []domain.UploadedFile) []domain.Document {
	docs := make([]domain.Document, len(files))
	for i, f := range files {
		docs[i] = domain.Document{Filename: f.Filename, Text: string(f.Data), Size: int64(len(f.Data))}
	}
	return docs
}

type processorFake struct {
	err  error
	docs []domain.Document
}

func (p *processorFake) Process(_ context.Context, docs []domain.Document) (*domain.ClaimResult, error) {
	p.docs = docs
	if p.err != nil {
		return nil, p.err
	}
	return sampleResult(), nil
}

type submitterFake struct {
	err   error
	files []domain.UploadedFile
}

func (s *submitterFake) Submit(_ context.Context, files []domain.UploadedFile) (*domain.ClaimJob, error) {
	s.files = files
	if s.err != nil {
		return nil, s.err
	}
	return sampleJob(domain.ClaimJobSubmitted, nil), nil
}

type claimsFake struct {
	job *domain.ClaimJob
	err error
}

func (c claimsFake) GetByID(context.Context, string) (*domain.ClaimJob, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.job, nil
}

type reportsFake struct{}

func (reportsFake) Render(claimID string, _ *domain.ClaimResult) ([]byte, error) {
	return []byte("xlsx:" + claimID), nil
}

func (reportsFake) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func sampleResult() *domain.ClaimResult {
	return &domain.ClaimResult{
		Documents: []domain.ProcessedDocument{{
			Classification: domain.Classification{Filename: "bill.pdf", Type: domain.DocumentTypeBill, Confidence: 0.9},
			Extraction: domain.Extraction{
				Filename:   "bill.pdf",
				Type:       domain.DocumentTypeBill,
				Fields:     domain.Fields{"total_amount": 675.0, "patient_name": "John Smith"},
				Confidence: 0.9,
			},
		}},
		Validation:     domain.ValidationReport{IsValid: true},
		Decision:       domain.ClaimDecision{Status: domain.ClaimStatusApproved, Reason: "ok", Confidence: 0.9},
		ProcessingTime: 1200 * time.Millisecond,
	}
}

func sampleJob(status domain.ClaimJobStatus, result *domain.ClaimResult) *domain.ClaimJob {
	now := time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC)
	return &domain.ClaimJob{
		ID:        "claim-1",
		Status:    status,
		Files:     []domain.StoredFile{{Filename: "bill.pdf", StorageKey: "claim-1/00_bill.pdf", Size: 5}},
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testConfig() config.Config {
	return config.Config{MaxFileSizeBytes: 1 << 20, MaxDocumentsPerClaim: 3}
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Dependencies{
		Processor: &processorFake{},
		Loader:    loaderFake{},
	}).Handler()
}

type upload struct {
	name string
	body string
}

func multipartRequest(t *testing.T, path string, uploads ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, u := range uploads {
		part, err := writer.CreateFormFile(uploadField, u.name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(u.body)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
