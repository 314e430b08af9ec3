package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/config"
	"github.com/sells-group/lifecycle-cli/internal/vendor"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lifecycle-cli",
	Short: "Product lifecycle date research pipeline",
	Long:  "Researches end-of-life and end-of-support dates for hardware products via web search, extracts and verifies dates from vendor pages, estimates missing milestones, and caches results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := vendor.ApplyOverridesFile(cfg.Vendor.OverridesPath); err != nil {
			zap.L().Warn("vendor overrides not applied", zap.Error(err))
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
