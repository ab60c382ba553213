package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/neo4jgraph"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/psgc"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/yamlstore"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/repository/postgres"
)

const importBatchSize = 500

type importTarget struct {
	name string
	out  string
}

func createImportPSGCCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var (
		target       importTarget
		sheet        string
		skipUnknowns bool
	)
	cmd := &cobra.Command{
		Use:   "import-psgc <workbook.xlsx>",
		Short: "Import regions, provinces, municipalities and barangays from a PSGC workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer f.Close()

			locations, err := psgc.ParseWorkbook(f, psgc.Options{Sheet: sheet, SkipUnknowns: skipUnknowns})
			if err != nil {
				return err
			}
			logger.Info("psgc_workbook_parsed", "path", args[0], "rows", len(locations))
			return runImport(cmd.Context(), cfg, logger, target, locations, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (defaults to the first sheet with a PSGC header)")
	cmd.Flags().BoolVar(&skipUnknowns, "skip-unknowns", true, "Skip rows whose geographic level is not a supported level")
	addTargetFlags(cmd, &target)
	return cmd
}

func createImportYAMLCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var target importTarget
	cmd := &cobra.Command{
		Use:   "import-yaml <locations.yaml>",
		Short: "Import location reference rows from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()

			locations, err := yamlstore.Decode(f)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, logger, target, locations, cmd.OutOrStdout())
		},
	}
	addTargetFlags(cmd, &target)
	return cmd
}

func addTargetFlags(cmd *cobra.Command, target *importTarget) {
	cmd.Flags().StringVar(&target.name, "target", config.LocationBackendPostgres, "Destination: postgres, neo4j or yaml")
	cmd.Flags().StringVar(&target.out, "out", "", "Output file for --target yaml (stdout when empty)")
}

func runImport(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	target importTarget,
	locations []domain.Location,
	stdout io.Writer,
) error {
	if target.name == config.LocationBackendYAML {
		return writeYAML(target.out, locations, stdout)
	}

	writer, closeFn, err := openLocationWriter(ctx, cfg, target.name)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := upsertInBatches(ctx, writer, locations, importBatchSize)
	if err != nil {
		return err
	}
	logger.Info("locations_imported", "target", target.name, "rows", n)
	fmt.Fprintf(stdout, "imported %d locations into %s\n", n, target.name)
	return nil
}

func openLocationWriter(ctx context.Context, cfg config.Config, target string) (ports.LocationWriter, func(), error) {
	switch target {
	case config.LocationBackendPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return postgres.NewLocationRepository(db), func() { _ = db.Close() }, nil
	case config.LocationBackendNeo4j:
		graph, err := neo4jgraph.New(ctx, neo4jgraph.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, nil, err
		}
		return graph, func() { _ = graph.Close(context.Background()) }, nil
	default:
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "open location writer", fmt.Errorf("target=%q", target))
	}
}

// upsertInBatches keeps each write transaction bounded. Parents precede
// children in the input so every batch can link to rows already written.
func upsertInBatches(ctx context.Context, writer ports.LocationWriter, locations []domain.Location, size int) (int, error) {
	if size <= 0 {
		size = len(locations)
	}
	total := 0
	for start := 0; start < len(locations); start += size {
		end := min(start+size, len(locations))
		n, err := writer.UpsertLocations(ctx, locations[start:end])
		total += n
		if err != nil {
			return total, fmt.Errorf("upsert locations %d-%d: %w", start, end, err)
		}
	}
	return total, nil
}

func writeYAML(path string, locations []domain.Location, stdout io.Writer) error {
	if path == "" {
		return yamlstore.Encode(stdout, locations)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create yaml output: %w", err)
	}
	if err := yamlstore.Encode(f, locations); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
