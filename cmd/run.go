package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/velasur/inventory-cli/internal/model"
)

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync pass over the remote folder",
	Long:  "Lists new or modified files in the monitored folder, reconciles them against the Holded catalog, applies price and stock updates, and sends the report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, runDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Runner.Run(ctx, "cli")
		if err != nil {
			return err
		}

		printRunSummary(run)
		return nil
	},
}

func printRunSummary(run *model.Run) {
	fmt.Printf("Run %s: %s\n", run.ID, run.Status)
	if run.Report == nil {
		return
	}
	r := run.Report
	fmt.Printf("  Files processed: %d\n", len(r.Files))
	fmt.Printf("  Catalog size:    %d\n", r.CatalogSize)
	fmt.Printf("  Price updates:   %d\n", r.PriceUpdates())
	fmt.Printf("  Stock updates:   %d\n", r.StockUpdates())
	fmt.Printf("  Failed ops:      %d\n", r.FailedOps())
	fmt.Printf("  Diagnostics:     %d\n", len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		loc := d.File
		if d.Row > 0 {
			loc = fmt.Sprintf("%s:%d", d.File, d.Row)
		}
		if d.SKU != "" {
			loc += " [" + d.SKU + "]"
		}
		fmt.Printf("    %-20s %s %s\n", d.Code, loc, d.Reason)
	}
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "plan updates without calling the ERP")
	rootCmd.AddCommand(runCmd)
}
