package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lifecycle-cli/internal/store"
)

const cacheFreshnessDays = 365

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the research cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache entry counts",
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

		staleBefore := time.Now().UTC().AddDate(0, 0, -cacheFreshnessDays)
		stats, err := st.CacheStats(ctx, staleBefore)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]int{
			"total": stats.Total,
			"fresh": stats.Total - stats.Stale,
			"stale": stats.Stale,
		})
	},
}

var (
	cacheShowManufacturer string
	cacheShowIdentifier   string
)

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached entry for one product",
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

		mfrKey, idKey := store.NormalizeKeys(cacheShowManufacturer, cacheShowIdentifier)
		entry, err := st.GetCacheEntry(ctx, mfrKey, idKey)
		if err != nil {
			return eris.Wrap(err, "cache lookup")
		}
		if entry == nil {
			return eris.Errorf("no cache entry for %s %s", cacheShowManufacturer, cacheShowIdentifier)
		}

		view := struct {
			*store.CacheEntry
			Estimation json.RawMessage `json:"estimation,omitempty"`
		}{entry, json.RawMessage(entry.Estimation)}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	cacheShowCmd.Flags().StringVar(&cacheShowManufacturer, "manufacturer", "", "product manufacturer (required)")
	cacheShowCmd.Flags().StringVar(&cacheShowIdentifier, "identifier", "", "product identifier (required)")
	_ = cacheShowCmd.MarkFlagRequired("manufacturer")
	_ = cacheShowCmd.MarkFlagRequired("identifier")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	rootCmd.AddCommand(cacheCmd)
}
