package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/claims-processor/internal/config"
	"github.com/kirillkom/claims-processor/internal/core/ports"
	"github.com/kirillkom/claims-processor/internal/core/usecase"
	"github.com/kirillkom/claims-processor/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/claims-processor/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/claims-processor/internal/infrastructure/llm/openai"
	"github.com/kirillkom/claims-processor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/claims-processor/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/claims-processor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/claims-processor/internal/infrastructure/resilience"
	"github.com/kirillkom/claims-processor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/claims-processor/internal/observability/metrics"
)

// Pipeline is the claim pipeline without any persistence. The CLI and the
// MCP server run on it alone.
type Pipeline struct {
	Processor ports.ClaimProcessor
	Loader    ports.DocumentLoader

	observer resilience.Observer
}

// NewPipeline wires the model transport and the use cases. When registerer is
// non-nil, resilience and claim metrics are registered on it.
func NewPipeline(cfg config.Config, service string, registerer prometheus.Registerer) (*Pipeline, error) {
	var observer resilience.Observer
	if registerer != nil {
		observer = metrics.NewResilienceMetrics(service, registerer)
	}
	executor := newExecutor(cfg.Resilience(), observer)

	model, err := newModel(cfg, executor)
	if err != nil {
		return nil, err
	}

	limits := cfg.PipelineLimits()
	if budget := cfg.Resilience().BackoffBudget(); budget >= limits.RequestTimeout {
		slog.Warn("retry_budget_exceeds_claim_timeout", "backoff_budget", budget.String(), "claim_timeout", limits.RequestTimeout.String())
	}
	var processor ports.ClaimProcessor = usecase.NewProcessClaimUseCase(
		usecase.NewClassifyUseCase(model, cfg.Rules, limits),
		usecase.NewAgentSet(model, cfg.Rules, limits),
		usecase.NewValidateUseCase(cfg.Rules),
		usecase.NewDecideUseCase(cfg.Rules),
		limits,
	)
	if registerer != nil {
		processor = metrics.InstrumentProcessor(processor, metrics.NewClaimMetrics(service, registerer))
	}

	return &Pipeline{
		Processor: processor,
		Loader:    usecase.NewLoadDocumentsUseCase(pdftext.New(0)),
		observer:  observer,
	}, nil
}

func newExecutor(cfg resilience.Config, observer resilience.Observer) *resilience.Executor {
	executor := resilience.NewExecutor(cfg)
	if observer != nil {
		executor.WithObserver(observer)
	}
	return executor
}

func newModel(cfg config.Config, executor *resilience.Executor) (ports.ModelInvoker, error) {
	switch cfg.ModelProvider {
	case "", "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
			Temperature: cfg.ModelTemperature,
			Timeout:     cfg.ModelTimeout(),
			Executor:    executor,
		}), nil
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.Options{
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: float32(cfg.ModelTemperature),
			Timeout:     cfg.ModelTimeout(),
			Executor:    executor,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.ModelProvider)
	}
}

type App struct {
	Config config.Config
	*Pipeline

	Queue        ports.MessageQueue
	Claims       ports.ClaimReader
	Submitter    ports.ClaimSubmitter
	JobProcessor ports.ClaimJobProcessor
	Reports      ports.ReportRenderer

	closeFn func()
}

// New wires the full service: pipeline, postgres, object storage and NATS.
func New(ctx context.Context, cfg config.Config, service string, registerer prometheus.Registerer) (*App, error) {
	pipeline, err := NewPipeline(cfg, service, registerer)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewClaimRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: newExecutor(cfg.QueueResilience(), pipeline.observer),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	limits := cfg.PipelineLimits()
	return &App{
		Config:   cfg,
		Pipeline: pipeline,

		Queue:        queue,
		Claims:       repo,
		Submitter:    usecase.NewSubmitClaimUseCase(repo, storage, queue, limits),
		JobProcessor: usecase.NewProcessClaimJobUseCase(repo, storage, pipeline.Loader, pipeline.Processor),
		Reports:      xlsx.New(),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
