package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/config"
)

var initPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(initPath); err != nil {
			return err
		}
		zap.L().Info("wrote starter config", zap.String("path", initPath))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", "config.yaml", "where to write the config file")
	rootCmd.AddCommand(initCmd)
}
