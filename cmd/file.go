package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fileDryRun bool

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Reconcile a single local file against the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, fileDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Runner.RunFile(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("  Catalog size:  %d\n", report.CatalogSize)
		fmt.Printf("  Price updates: %d\n", report.PriceUpdates())
		fmt.Printf("  Stock updates: %d\n", report.StockUpdates())
		fmt.Printf("  Failed ops:    %d\n", report.FailedOps())
		if fileDryRun {
			fmt.Printf("  Planned ops:   %d (dry run, nothing applied)\n", len(report.Ops))
		}
		for _, d := range report.Diagnostics {
			fmt.Printf("  %-20s row %d [%s] %s\n", d.Code, d.Row, d.SKU, d.Reason)
		}
		return nil
	},
}

func init() {
	fileCmd.Flags().BoolVar(&fileDryRun, "dry-run", false, "plan updates without calling the ERP")
	rootCmd.AddCommand(fileCmd)
}
