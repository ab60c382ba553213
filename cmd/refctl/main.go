package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "refctl", cfg.LogLevel)

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "refctl",
		Short:        "Reference data and template maintenance",
		Long:         "Loads administrative location reference data and manages template files for the civil registry forms service.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		createImportPSGCCmd(cfg, logger),
		createImportYAMLCmd(cfg, logger),
		createLintTemplateCmd(cfg, logger),
		createPutTemplateFileCmd(cfg, logger),
	)
	return rootCmd
}
