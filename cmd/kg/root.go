package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "kg",
	Short: "Knowledge graph construction pipeline",
	Long:  "Extracts (head, relation, tail) triples from documents with an LM backend, iteratively refines graph connectivity, and exports the result as JSON or GraphML.",
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
