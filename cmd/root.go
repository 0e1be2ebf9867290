package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "resource-matcher",
	Short: "Match caregivers to ranked support resources",
	Long:  "Resolves a caller's ZIP code against a curated catalog of service areas, joins programs, providers and facilities, and returns resources ranked by relevance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
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
