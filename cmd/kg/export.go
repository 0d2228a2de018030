package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/export"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

var (
	exportIn     string
	exportOutDir string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert extraction results to graph formats",
	Long:  "Reads per-record result JSON files (as written by `kg batch`) and converts each to GraphML or a canonical JSON graph document.",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(exportIn)
		if err != nil {
			return eris.Wrap(err, "read input dir")
		}

		if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}

		var ext string
		switch exportFormat {
		case "graphml":
			ext = ".graphml"
		case "json":
			ext = ".graph.json"
		default:
			return eris.Errorf("unknown export format %q (graphml or json)", exportFormat)
		}

		converted := 0
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}

			data, err := os.ReadFile(filepath.Join(exportIn, entry.Name()))
			if err != nil {
				return eris.Wrapf(err, "read %s", entry.Name())
			}

			var result model.ExtractionResult
			if err := json.Unmarshal(data, &result); err != nil {
				zap.L().Warn("export: skipping unparseable result", zap.String("file", entry.Name()), zap.Error(err))
				continue
			}

			base := strings.TrimSuffix(entry.Name(), ".json")
			out, err := os.Create(filepath.Join(exportOutDir, base+ext))
			if err != nil {
				return eris.Wrapf(err, "create %s%s", base, ext)
			}

			switch exportFormat {
			case "graphml":
				err = export.WriteGraphML(out, &result)
			case "json":
				err = export.WriteGraphJSON(out, &result)
			}
			out.Close()
			if err != nil {
				return err
			}
			converted++
		}

		zap.L().Info("export: complete",
			zap.Int("converted", converted),
			zap.String("format", exportFormat),
			zap.String("out", exportOutDir),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "in", "results", "directory of result JSON files")
	exportCmd.Flags().StringVar(&exportOutDir, "out", "graphs", "output directory")
	exportCmd.Flags().StringVar(&exportFormat, "format", "graphml", "output format: graphml or json")
	rootCmd.AddCommand(exportCmd)
}
