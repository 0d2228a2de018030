package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/FabioYanezRomero/kg-constructor/internal/store"
)

var runsStatus string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored extraction runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
			Status: store.RunStatus(runsStatus),
			Limit:  50,
		})
		if err != nil {
			return err
		}
		return printJSON(runs)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := map[string]any{"run": run}
		if result, err := st.GetResult(cmd.Context(), args[0]); err == nil {
			out["result"] = result
		}
		return printJSON(out)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
