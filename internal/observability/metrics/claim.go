package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

type ClaimMetrics struct {
	service string

	claimsTotal    *prometheus.CounterVec
	documentsTotal *prometheus.CounterVec
	warningsTotal  *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

func NewClaimMetrics(service string, registerer prometheus.Registerer) *ClaimMetrics {
	claimsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Processed claims by decision status.",
		},
		[]string{"service", "status"},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_documents_total",
			Help:      "Processed claim documents by classified type.",
		},
		[]string{"service", "type"},
	)
	warningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_warnings_total",
			Help:      "Validation warnings emitted for processed claims.",
		},
		[]string{"service"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claim_duration_seconds",
			Help:      "End-to-end claim pipeline duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)

	registerer.MustRegister(claimsTotal, documentsTotal, warningsTotal, duration)

	return &ClaimMetrics{
		service:        service,
		claimsTotal:    claimsTotal,
		documentsTotal: documentsTotal,
		warningsTotal:  warningsTotal,
		duration:       duration,
	}
}

func (m *ClaimMetrics) Observe(result *domain.ClaimResult, elapsed time.Duration, err error) {
	status := "error"
	if err == nil && result != nil {
		status = string(result.Decision.Status)
		for _, doc := range result.Documents {
			m.documentsTotal.WithLabelValues(m.service, string(doc.Classification.Type)).Inc()
		}
		if n := len(result.Validation.Warnings); n > 0 {
			m.warningsTotal.WithLabelValues(m.service).Add(float64(n))
		}
	}
	m.claimsTotal.WithLabelValues(m.service, status).Inc()
	m.duration.WithLabelValues(m.service, status).Observe(elapsed.Seconds())
}

type instrumentedProcessor struct {
	next    ports.ClaimProcessor
	metrics *ClaimMetrics
}

// InstrumentProcessor records claim metrics around every Process call.
func InstrumentProcessor(next ports.ClaimProcessor, m *ClaimMetrics) ports.ClaimProcessor {
	if m == nil {
		return next
	}
	return &instrumentedProcessor{next: next, metrics: m}
}

func (p *instrumentedProcessor) Process(ctx context.Context, docs []domain.Document) (*domain.ClaimResult, error) {
	start := time.Now()
	result, err := p.next.Process(ctx, docs)
	p.metrics.Observe(result, time.Since(start), err)
	return result, err
}
