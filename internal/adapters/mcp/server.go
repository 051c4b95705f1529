// Package mcpadapter exposes claim processing as an MCP tool.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
)

const (
	serverName       = "claims-processor"
	serverVersion    = "1.0.0"
	processClaimTool = "process_claim"
)

type documentInput struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type processClaimInput struct {
	Documents []documentInput `json:"documents"`
}

type Handler struct {
	processor    ports.ClaimProcessor
	maxDocuments int
}

func NewHandler(processor ports.ClaimProcessor, maxDocuments int) *Handler {
	if maxDocuments <= 0 {
		maxDocuments = 10
	}
	return &Handler{processor: processor, maxDocuments: maxDocuments}
}

func NewServer(handler *Handler) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.AddTool(ProcessClaimTool(), handler.ProcessClaim)
	return s
}

func ProcessClaimTool() mcp.Tool {
	return mcp.NewTool(processClaimTool,
		mcp.WithDescription("Classify, extract and validate the documents of one medical insurance claim "+
			"and return the claim decision with per-document extracted data."),
		mcp.WithArray("documents",
			mcp.Required(),
			mcp.Description("Claim documents as already extracted plain text."),
			mcp.Items(map[string]any{
				"type":     "object",
				"required": []string{"filename", "text"},
				"properties": map[string]any{
					"filename": map[string]any{"type": "string", "description": "Original file name, used as a type hint."},
					"text":     map[string]any{"type": "string", "description": "Plain text content of the document."},
				},
			}),
		),
	)
}

// ProcessClaim runs the pipeline. Input problems come back as tool errors so
// the calling model can correct them; pipeline failures are protocol errors.
func (h *Handler) ProcessClaim(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.decodeDocuments(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := h.processor.Process(ctx, docs)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("process claim: %w", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal claim result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (h *Handler) decodeDocuments(args map[string]any) ([]domain.Document, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	var input processClaimInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if len(input.Documents) == 0 {
		return nil, errors.New("documents must contain at least one entry")
	}
	if len(input.Documents) > h.maxDocuments {
		return nil, fmt.Errorf("%d documents exceed the limit of %d", len(input.Documents), h.maxDocuments)
	}

	docs := make([]domain.Document, 0, len(input.Documents))
	for i, in := range input.Documents {
		filename := strings.TrimSpace(in.Filename)
		if filename == "" {
			return nil, fmt.Errorf("documents[%d].filename is required", i)
		}
		docs = append(docs, domain.Document{
			Filename: filename,
			Text:     in.Text,
			Size:     int64(len(in.Text)),
		})
	}
	return docs, nil
}
