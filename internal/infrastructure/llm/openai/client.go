// Package openai implements the model port against OpenAI-compatible chat APIs.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/infrastructure/resilience"
)

const generateOperation = "openai.chat"

type Options struct {
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	Executor    *resilience.Executor
}

type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
	executor    *resilience.Executor
}

func New(apiKey, model string, options Options) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(options.BaseURL, "/")
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       model,
		temperature: options.Temperature,
		executor:    options.Executor,
	}
}

func (c *Client) Generate(ctx context.Context, call domain.ModelCall) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: call.System},
			{Role: goopenai.ChatMessageRoleUser, Content: call.Prompt},
		},
		ResponseFormat: responseFormat(call),
	}

	text, err := resilience.Call(ctx, c.executor, generateOperation, func(callCtx context.Context) (string, error) {
		resp, err := c.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return "", fmt.Errorf("openai %s request: %w", call.Operation, err)
		}
		if len(resp.Choices) == 0 {
			return "", domain.WrapError(domain.ErrMalformedResponse, "openai "+call.Operation, errors.New("no choices returned"))
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}, classifyOpenAIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("openai "+call.Operation, err)
	}
	return text, nil
}

func responseFormat(call domain.ModelCall) *goopenai.ChatCompletionResponseFormat {
	if call.Schema == nil {
		return &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	name := call.Operation
	if name == "" {
		name = "response"
	}
	return &goopenai.ChatCompletionResponseFormat{
		Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: jsonSchema(call.Schema),
		},
	}
}

type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

func statusCode(err error) (int, bool) {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	return resilience.ClassifyHTTPError(err, statusCode)
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if class := classifyOpenAIError(err); class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
