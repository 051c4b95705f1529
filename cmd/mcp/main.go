package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/claims-processor/internal/adapters/mcp"
	"github.com/kirillkom/claims-processor/internal/bootstrap"
	"github.com/kirillkom/claims-processor/internal/config"
	"github.com/kirillkom/claims-processor/internal/observability/logging"
)

const service = "claims-mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, service, cfg.LogLevel))

	pipeline, err := bootstrap.NewPipeline(cfg, service, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	handler := mcpadapter.NewHandler(pipeline.Processor, cfg.MaxDocumentsPerClaim)
	if err := server.ServeStdio(mcpadapter.NewServer(handler)); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
