package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/infrastructure/resilience"
)

const generateOperation = "ollama.generate"

type Options struct {
	Temperature float64
	Timeout     time.Duration
	Executor    *resilience.Executor
}

// Client implements ports.ModelInvoker on top of the Ollama generate API.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: options.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		executor:    options.Executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  any            `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

func (c *Client) Generate(ctx context.Context, call domain.ModelCall) (string, error) {
	req := generateRequest{
		Model:   c.model,
		Prompt:  call.Prompt,
		System:  call.System,
		Format:  "json",
		Options: map[string]any{"temperature": c.temperature},
	}
	if call.Schema != nil {
		req.Format = call.Schema
	}

	text, err := resilience.Call(ctx, c.executor, generateOperation, func(callCtx context.Context) (string, error) {
		return c.generate(callCtx, req, call.Operation)
	}, classifyOllamaError)
	if err != nil {
		return "", wrapModelError("ollama "+call.Operation, err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, req generateRequest, operation string) (string, error) {
	response, err := c.postGenerate(ctx, req, operation)
	if err != nil {
		return "", err
	}
	if response.DoneReason == "length" {
		// The reply is cut mid-object; the response parser reports it as truncated.
		slog.Warn("ollama_response_truncated", "operation", operation, "model", c.model, "eval_count", response.EvalCount)
	}
	return strings.TrimSpace(response.Response), nil
}
