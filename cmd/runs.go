package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/velasur/inventory-cli/internal/model"
	"github.com/velasur/inventory-cli/internal/store"
)

var (
	runsLimit  int
	runsStatus string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsStatus),
			Limit:  runsLimit,
		})
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		fmt.Printf("%-36s  %-8s  %-9s  %-19s  %s\n", "ID", "TRIGGER", "STATUS", "CREATED", "SUMMARY")
		for _, run := range runs {
			summary := "-"
			if run.Report != nil {
				summary = fmt.Sprintf("%d price, %d stock, %d failed, %d diags",
					run.Report.PriceUpdates(), run.Report.StockUpdates(),
					run.Report.FailedOps(), len(run.Report.Diagnostics))
			}
			fmt.Printf("%-36s  %-8s  %-9s  %-19s  %s\n",
				run.ID, run.Trigger, run.Status,
				run.CreatedAt.Format("2006-01-02 15:04:05"), summary)
		}
		return nil
	},
}

// listFilterFromQuery derives a run filter from the /runs query string.
func listFilterFromQuery(req *http.Request) store.RunFilter {
	f := store.RunFilter{
		Status: model.RunStatus(req.URL.Query().Get("status")),
	}
	if limit, err := strconv.Atoi(req.URL.Query().Get("limit")); err == nil {
		f.Limit = limit
	}
	return f
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running, complete, no_files, failed)")
	rootCmd.AddCommand(runsCmd)
}
