package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/inventory"
	"github.com/sells-group/lifecycle-cli/internal/research"
)

var (
	batchInput   string
	batchOutput  string
	batchNoCache bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich an inventory file and write an XLSX report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		products, err := inventory.ReadProducts(batchInput)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			return eris.Errorf("no products found in %s", batchInput)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		enricher := initEnricher(st)

		if !batchNoCache {
			statuses, err := enricher.Preflight(ctx, products)
			if err != nil {
				zap.L().Warn("cache preflight failed", zap.Error(err))
			} else {
				var fresh, stale int
				for _, s := range statuses {
					if !s.Cached {
						continue
					}
					if s.Fresh {
						fresh++
					} else {
						stale++
					}
				}
				zap.L().Info("cache preflight",
					zap.Int("products", len(products)),
					zap.Int("fresh", fresh),
					zap.Int("stale", stale),
					zap.Int("uncached", len(products)-fresh-stale),
				)
			}
		}

		results := enricher.EnrichAll(ctx, products, research.Options{UseCache: !batchNoCache})

		if err := inventory.WriteReport(batchOutput, results); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("products", len(results)),
			zap.String("report", batchOutput),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "inventory file, CSV or XLSX (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "lifecycle_report.xlsx", "report output path")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "skip the research cache and force fresh research")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
