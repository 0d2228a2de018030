package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/loader"
	"github.com/FabioYanezRomero/kg-constructor/internal/pipeline"
)

var (
	batchInput      string
	batchTextColumn string
	batchIDColumn   string
	batchSheet      string
	batchLimit      int
	batchOutDir     string
	batchDomain     string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract knowledge graphs for every record in a CSV/JSONL/XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := loader.Load(batchInput, loader.Options{
			TextColumn: batchTextColumn,
			IDColumn:   batchIDColumn,
			SheetName:  batchSheet,
			Limit:      batchLimit,
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.New("no records found in input")
		}

		pipe, err := initPipeline(cfg)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}

		opts := defaultOptions(cfg)
		if batchDomain != "" {
			opts.Domain = batchDomain
		}

		zap.L().Info("batch: starting",
			zap.Int("records", len(records)),
			zap.String("domain", opts.Domain),
			zap.Int("concurrency", cfg.Batch.MaxConcurrentRecords),
		)

		outcomes := pipe.ProcessBatch(ctx, records, opts, cfg.Batch.MaxConcurrentRecords, func(o pipeline.BatchOutcome) {
			if o.Err != nil {
				return
			}
			path := filepath.Join(batchOutDir, o.RecordID+".json")
			data, err := json.MarshalIndent(o.Result, "", "  ")
			if err != nil {
				zap.L().Error("batch: marshal result", zap.String("record", o.RecordID), zap.Error(err))
				return
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				zap.L().Error("batch: write result", zap.String("record", o.RecordID), zap.Error(err))
			}
		})

		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
			}
		}

		zap.L().Info("batch: complete",
			zap.Int("processed", len(outcomes)-failed),
			zap.Int("failed", failed),
			zap.String("out", batchOutDir),
		)

		if failed == len(outcomes) {
			return eris.New("batch: all records failed")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "input file (.csv, .jsonl, .xlsx)")
	batchCmd.Flags().StringVar(&batchTextColumn, "text-column", "text", "column containing document text")
	batchCmd.Flags().StringVar(&batchIDColumn, "id-column", "id", "column containing record ids")
	batchCmd.Flags().StringVar(&batchSheet, "sheet", "", "sheet name (XLSX only)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max records to process (0 = all)")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "results", "output directory for per-record JSON")
	batchCmd.Flags().StringVar(&batchDomain, "domain", "", "domain bundle to use (default from config)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
