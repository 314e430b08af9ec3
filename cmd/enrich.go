package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/internal/research"
)

var (
	enrichManufacturer string
	enrichIdentifier   string
	enrichDescription  string
	enrichNoCache      bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Research lifecycle dates for a single product",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		enricher := initEnricher(st)

		product := model.Product{
			Manufacturer: enrichManufacturer,
			Identifier:   enrichIdentifier,
			Description:  enrichDescription,
		}

		result, err := enricher.EnrichWithOptions(ctx, product, research.Options{UseCache: !enrichNoCache})
		if err != nil {
			return eris.Wrap(err, "enrich product")
		}

		zap.L().Info("enrichment complete",
			zap.String("identifier", product.Identifier),
			zap.Int("confidence", result.Result.Confidence.Overall),
			zap.Int("dates_known", result.Result.Dates.CountKnown()),
			zap.Bool("from_cache", result.Result.FromCache),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichManufacturer, "manufacturer", "", "product manufacturer (required)")
	enrichCmd.Flags().StringVar(&enrichIdentifier, "identifier", "", "product identifier / part number (required)")
	enrichCmd.Flags().StringVar(&enrichDescription, "description", "", "product description")
	enrichCmd.Flags().BoolVar(&enrichNoCache, "no-cache", false, "skip the research cache and force fresh research")
	_ = enrichCmd.MarkFlagRequired("manufacturer")
	_ = enrichCmd.MarkFlagRequired("identifier")
	rootCmd.AddCommand(enrichCmd)
}
