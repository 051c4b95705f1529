package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/claims-processor/internal/bootstrap"
	"github.com/kirillkom/claims-processor/internal/config"
	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
	"github.com/kirillkom/claims-processor/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/claims-processor/internal/observability/logging"
)

const service = "claimctl"

type configLoader func() (config.Config, error)

type pipelineFactory func(cfg config.Config) (*bootstrap.Pipeline, error)

func newRootCmd(load configLoader) *cobra.Command {
	return newRootCmdWith(load, func(cfg config.Config) (*bootstrap.Pipeline, error) {
		return bootstrap.NewPipeline(cfg, service, nil)
	})
}

func newRootCmdWith(load configLoader, newPipeline pipelineFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "claimctl",
		Short:         "Process medical insurance claim documents from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newProcessCmd(load, newPipeline), newRulesCmd(load))
	return root
}

func newProcessCmd(load configLoader, newPipeline pipelineFactory) *cobra.Command {
	var (
		reportPath string
		compact    bool
	)
	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Run the claim pipeline on local PDF or text files and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			slog.SetDefault(logging.NewJSONLoggerTo(cmd.ErrOrStderr(), service, cfg.LogLevel))

			pipeline, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			files, err := readFiles(args)
			if err != nil {
				return err
			}
			result, err := runClaim(cmd.Context(), pipeline.Loader, pipeline.Processor, files)
			if err != nil {
				return err
			}

			if err := writeResult(cmd.OutOrStdout(), result, !compact); err != nil {
				return err
			}
			if reportPath != "" {
				return writeReport(reportPath, result)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reportPath, "xlsx", "", "also write a spreadsheet report to this path")
	cmd.Flags().BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}

func newRulesCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective claim rules as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(cfg.Rules); err != nil {
				return fmt.Errorf("encode rules: %w", err)
			}
			return encoder.Close()
		},
	}
}

func readFiles(paths []string) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, domain.UploadedFile{Filename: filepath.Base(path), Data: data})
	}
	return files, nil
}

func runClaim(ctx context.Context, loader ports.DocumentLoader, processor ports.ClaimProcessor, files []domain.UploadedFile) (*domain.ClaimResult, error) {
	return processor.Process(ctx, loader.Load(ctx, files))
}

func writeResult(w io.Writer, result *domain.ClaimResult, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func writeReport(path string, result *domain.ClaimResult) error {
	report, err := xlsx.New().Render(filepath.Base(path), result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
