package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/core/usecase"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/pdfinfo"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/storage/localfs"
)

func createLintTemplateCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var failOnIssues bool
	cmd := &cobra.Command{
		Use:   "lint-template <template-id>",
		Short: "Check a template's field layout against its PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := postgres.OpenDB(cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer db.Close()

			storage, err := localfs.New(cfg.TemplateStoragePath)
			if err != nil {
				return err
			}
			linter := usecase.NewLintTemplateUseCase(postgres.NewTemplateRepository(db), storage, pdfinfo.NewCounter(), logger)

			report, err := linter.LintTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if failOnIssues && !report.OK() {
				return fmt.Errorf("template %s has %d lint issues", args[0], len(report.Issues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnIssues, "fail-on-issues", false, "Exit non-zero when issues are found")
	return cmd
}

func createPutTemplateFileCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "put-template-file <key> <file.pdf>",
		Short: "Store a template PDF under the given storage key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := localfs.New(cfg.TemplateStoragePath)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open template file: %w", err)
			}
			defer f.Close()

			if err := storage.Save(cmd.Context(), args[0], f); err != nil {
				return err
			}
			logger.Info("template_file_stored", "key", args[0], "source", args[1])
			return nil
		},
	}
}
