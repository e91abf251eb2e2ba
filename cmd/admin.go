package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/export"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}
		zap.L().Info("migration complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load products and reference factors from a fixtures file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return eris.New("seed: --file is required")
		}
		f, err := store.LoadFixtures(path)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := seedStore(ctx, st, f); err != nil {
			return err
		}
		zap.L().Info("seed complete",
			zap.String("file", path),
			zap.Int("products", len(f.Products)),
			zap.Int("materials", len(f.Materials)),
		)
		return nil
	},
}

// seedStore migrates st and loads f into it.
func seedStore(ctx context.Context, st store.Store, f *store.Fixtures) error {
	seeder, ok := st.(store.Seeder)
	if !ok {
		return eris.New("seed: store does not support seeding")
	}
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "seed: migrate")
	}
	return seeder.Seed(ctx, f)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the latest calculation of a product to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		productID, _ := cmd.Flags().GetString("product")
		output, _ := cmd.Flags().GetString("output")
		if productID == "" {
			return eris.New("export: --product is required")
		}
		if output == "" {
			output = productID + ".xlsx"
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "export: migrate")
		}

		rep, err := loadReport(ctx, st, productID)
		if err != nil {
			return err
		}

		file, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", output)
		}
		if err := export.WriteWorkbook(file, rep); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", output)
		}

		zap.L().Info("export complete", zap.String("product_id", productID), zap.String("output", output))
		return nil
	},
}

// reportReader reads the persisted output of a product's latest calculation.
type reportReader interface {
	GetAggregate(ctx context.Context, productID string) (*store.AggregateRecord, error)
	ListResolvedImpacts(ctx context.Context, productID string) ([]model.ResolvedImpact, error)
	GetRun(ctx context.Context, runID string) (*model.CalculationRun, error)
}

// loadReport assembles the workbook content for productID from the store.
func loadReport(ctx context.Context, st reportReader, productID string) (export.Report, error) {
	rec, err := st.GetAggregate(ctx, productID)
	if err != nil {
		return export.Report{}, eris.Wrapf(err, "export: aggregate %s", productID)
	}
	impacts, err := st.ListResolvedImpacts(ctx, productID)
	if err != nil {
		return export.Report{}, eris.Wrapf(err, "export: impacts %s", productID)
	}

	rep := export.Report{
		ProductID:      productID,
		Impacts:        impacts,
		Aggregated:     rec.Aggregated,
		Interpretation: rec.Interpretation,
	}

	run, err := st.GetRun(ctx, rec.RunID)
	switch {
	case err == nil:
		rep.Warnings = run.Warnings
	case store.IsNotFound(err):
		zap.L().Warn("export: run for aggregate not found", zap.String("run_id", rec.RunID))
	default:
		return export.Report{}, eris.Wrapf(err, "export: run %s", rec.RunID)
	}
	return rep, nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	seedCmd.Flags().String("file", "", "fixtures YAML file (required)")
	rootCmd.AddCommand(seedCmd)

	exportCmd.Flags().String("product", "", "product ID to export (required)")
	exportCmd.Flags().String("output", "", "output path (default <product>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
