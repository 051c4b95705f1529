package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/v1/claims/process":         "/v1/claims/process",
		"/v1/claims/abc":             "/v1/claims/{claim_id}",
		"/v1/claims/abc/report.xlsx": "/v1/claims/{claim_id}/report.xlsx",
		"/healthz":                   "/healthz",
	}
	for path, want := range tests {
		if got := normalizePath(path); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/claims/abc", nil))

	got := value(t, m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/claims/{claim_id}", "404"))
	if got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "claims_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

type processorFunc func(ctx context.Context, docs []domain.Document) (*domain.ClaimResult, error)

func (f processorFunc) Process(ctx context.Context, docs []domain.Document) (*domain.ClaimResult, error) {
	return f(ctx, docs)
}

func TestInstrumentProcessorRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewClaimMetrics("api", registry)

	ok := InstrumentProcessor(processorFunc(func(context.Context, []domain.Document) (*domain.ClaimResult, error) {
		return &domain.ClaimResult{
			Documents: []domain.ProcessedDocument{
				{Classification: domain.Classification{Type: domain.DocumentTypeBill}},
				{Classification: domain.Classification{Type: domain.DocumentTypeIDCard}},
			},
			Validation: domain.ValidationReport{Warnings: []string{"a", "b"}},
			Decision:   domain.ClaimDecision{Status: domain.ClaimStatusApproved},
		}, nil
	}), m)
	if _, err := ok.Process(context.Background(), nil); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	failing := InstrumentProcessor(processorFunc(func(context.Context, []domain.Document) (*domain.ClaimResult, error) {
		return nil, errors.New("boom")
	}), m)
	if _, err := failing.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error to pass through")
	}

	if got := value(t, m.claimsTotal.WithLabelValues("api", "approved")); got != 1 {
		t.Fatalf("approved claims = %v", got)
	}
	if got := value(t, m.claimsTotal.WithLabelValues("api", "error")); got != 1 {
		t.Fatalf("errored claims = %v", got)
	}
	if got := value(t, m.documentsTotal.WithLabelValues("api", "bill")); got != 1 {
		t.Fatalf("bill documents = %v", got)
	}
	if got := value(t, m.warningsTotal.WithLabelValues("api")); got != 2 {
		t.Fatalf("warnings = %v", got)
	}
}

func TestResilienceMetricsTrackBreakerState(t *testing.T) {
	m := NewResilienceMetrics("worker", prometheus.NewRegistry())
	m.ObserveRetry("ollama.generate")
	m.ObserveBreakerState("ollama.generate", "open")

	if got := value(t, m.retriesTotal.WithLabelValues("worker", "ollama.generate")); got != 1 {
		t.Fatalf("retries = %v", got)
	}
	if got := value(t, m.breakerState.WithLabelValues("worker", "ollama.generate")); got != 2 {
		t.Fatalf("breaker state = %v", got)
	}
}

func TestWorkerMetricsFinishClaim(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartClaim()
	m.FinishClaim("worker", time.Second, nil)
	m.ObserveQueueLag("worker", -time.Second)

	if got := value(t, m.processTotal.WithLabelValues("worker", "completed")); got != 1 {
		t.Fatalf("process total = %v", got)
	}
	if got := value(t, m.processInFlight); got != 0 {
		t.Fatalf("in flight = %v", got)
	}
}

func TestJobOutcome(t *testing.T) {
	tests := map[string]error{
		"completed": nil,
		"not_found": domain.WrapError(domain.ErrClaimNotFound, "get claim", errors.New("no rows")),
		"temporary": domain.WrapError(domain.ErrTemporary, "nats.publish", errors.New("timeout")),
		"canceled":  fmt.Errorf("process claim: %w", context.DeadlineExceeded),
		"failed":    errors.New("boom"),
	}
	for want, err := range tests {
		if got := jobOutcome(err); got != want {
			t.Fatalf("jobOutcome(%v) = %q, want %q", err, got, want)
		}
	}
}

func value(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	default:
		t.Fatalf("unsupported metric type")
		return 0
	}
}
