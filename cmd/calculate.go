package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/export"
	"github.com/sells-group/impact-engine/internal/model"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate the footprint of one product",
	Long:  "Resolves every material of a product, attributes facility emissions, aggregates and interprets the result, and persists it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		productID, _ := cmd.Flags().GetString("product")
		orgID, _ := cmd.Flags().GetString("org")
		allocPath, _ := cmd.Flags().GetString("allocations")
		eolPath, _ := cmd.Flags().GetString("eol")
		sensPath, _ := cmd.Flags().GetString("sensitivity")
		format, _ := cmd.Flags().GetString("format")

		if format != "table" && format != "json" {
			return eris.Errorf("calculate: unsupported format %q", format)
		}

		req, err := buildRequest(productID, orgID, allocPath, eolPath, sensPath)
		if err != nil {
			return err
		}

		env, err := initEngine(ctx, cfg, "calculate")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.Calculate(ctx, req)
		if err != nil {
			return eris.Wrapf(err, "calculate %s", productID)
		}

		zap.L().Info("calculation complete",
			zap.String("product_id", productID),
			zap.String("run_id", res.Run.ID),
			zap.Float64("climate", res.Aggregated.Total.Climate),
			zap.Int("warnings", len(res.Warnings)),
		)

		if format == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		formatResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// buildRequest assembles an engine request from command-line inputs. Empty
// paths leave the corresponding field unset.
func buildRequest(productID, orgID, allocPath, eolPath, sensPath string) (engine.Request, error) {
	req := engine.Request{ProductID: productID, OrgID: orgID}
	if productID == "" {
		return req, eris.New("calculate: --product is required")
	}

	if allocPath != "" {
		allocs, err := readAllocations(allocPath, productID)
		if err != nil {
			return req, err
		}
		req.Allocations = allocs
	}
	if eolPath != "" {
		var ec model.EoLConfig
		if err := readYAML(eolPath, &ec); err != nil {
			return req, err
		}
		req.EoL = &ec
	}
	if sensPath != "" {
		var sa model.SensitivityAnalysis
		if err := readYAML(sensPath, &sa); err != nil {
			return req, err
		}
		req.Sensitivity = &sa
	}
	return req, nil
}

// readAllocations loads facility allocations from an XLSX workbook or a YAML
// list. Rows without a product ID are assigned productID.
func readAllocations(path, productID string) ([]model.FacilityAllocation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return export.ReadAllocations(path, productID)
	case ".yaml", ".yml", ".json":
		var allocs []model.FacilityAllocation
		if err := readYAML(path, &allocs); err != nil {
			return nil, err
		}
		for i := range allocs {
			if allocs[i].ProductID == "" {
				allocs[i].ProductID = productID
			}
		}
		return allocs, nil
	default:
		return nil, eris.Errorf("calculate: unsupported allocations file %s", path)
	}
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}
	return nil
}

// formatResult writes a human-readable summary of a calculation to out.
func formatResult(out io.Writer, res *engine.Result) {
	agg := res.Aggregated

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Product:\t%s\n", agg.ProductID)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.Run.ID)
	_, _ = fmt.Fprintf(w, "Climate (kg CO2e):\t%.4f\n", agg.Total.Climate)
	_, _ = fmt.Fprintf(w, "Water (m3):\t%.4f\n", agg.Total.Water)
	_, _ = fmt.Fprintf(w, "Land (m2a):\t%.4f\n", agg.Total.Land)
	_, _ = fmt.Fprintf(w, "Transport:\t%.4f\n", agg.Transport)
	_, _ = fmt.Fprintf(w, "End of life (net):\t%.4f\n", agg.EndOfLife.Net)
	_, _ = fmt.Fprintf(w, "Materials:\t%d\n", agg.MaterialCount)
	_, _ = fmt.Fprintf(w, "Avg confidence:\t%.2f\n", agg.AverageConfidence)
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MATERIAL\tSTAGE\tCLIMATE\tPRIORITY\tTAG\tSOURCE")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-------\t--------\t---\t------")
	for _, ri := range res.Impacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.4f\t%d\t%s\t%s\n",
			ri.MaterialName,
			ri.Stage,
			ri.Impacts.Climate,
			ri.Priority,
			ri.QualityTag,
			ri.Source,
		)
	}
	_ = w.Flush()

	stages := make([]string, 0, len(agg.ByStage))
	for s := range agg.ByStage {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range stages {
		_, _ = fmt.Fprintf(w, "Stage %s:\t%.4f\n", s, agg.ByStage[model.LifecycleStage(s)])
	}
	for _, sc := range model.AllScopes() {
		_, _ = fmt.Fprintf(w, "Scope %d:\t%.4f\n", sc, agg.ByScope[sc])
	}
	_ = w.Flush()

	if len(res.Interpretation.Conclusions) > 0 {
		_, _ = fmt.Fprintln(out)
		for _, c := range res.Interpretation.Conclusions {
			_, _ = fmt.Fprintf(out, "- %s\n", c)
		}
	}

	if len(res.Warnings) > 0 {
		_, _ = fmt.Fprintf(out, "\n%d warning(s):\n", len(res.Warnings))
		for _, wn := range res.Warnings {
			_, _ = fmt.Fprintf(out, "  [%s] %s: %s\n", wn.Code, wn.Subject, wn.Message)
		}
	}
}

func init() {
	calculateCmd.Flags().String("product", "", "product ID to calculate (required)")
	calculateCmd.Flags().String("org", "", "organization ID for supplier lookups")
	calculateCmd.Flags().String("allocations", "", "facility allocations file (.yaml or .xlsx)")
	calculateCmd.Flags().String("eol", "", "end-of-life configuration file (.yaml)")
	calculateCmd.Flags().String("sensitivity", "", "sensitivity analysis file (.yaml)")
	calculateCmd.Flags().String("format", "table", "output format: table or json")
	rootCmd.AddCommand(calculateCmd)
}
