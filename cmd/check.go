package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/velasur/inventory-cli/internal/source"
	"github.com/velasur/inventory-cli/pkg/dropbox"
	"github.com/velasur/inventory-cli/pkg/holded"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity to the configured services",
	Long:  "Tests the Holded API key, the file source credentials, the SMTP server, and the run database, reporting each result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		failures := 0

		client := holded.NewClient(cfg.Holded.APIKey,
			holded.WithBaseURL(cfg.Holded.BaseURL),
			holded.WithRateLimit(cfg.Holded.RatePerSec),
		)
		if err := client.TestConnection(ctx); err != nil {
			fmt.Printf("holded:  FAIL  %v\n", err)
			failures++
		} else {
			fmt.Println("holded:  OK")
		}

		switch cfg.Source.Driver {
		case "dropbox", "":
			dbx := dropbox.NewClient(cfg.Dropbox.AccessToken)
			if acc, err := dbx.CurrentAccount(ctx); err != nil {
				fmt.Printf("dropbox: FAIL  %v\n", err)
				failures++
			} else {
				fmt.Printf("dropbox: OK    (%s)\n", acc.Email)
			}
		case "ftp":
			src := source.NewFTPSource(source.FTPOptions{
				Host:     cfg.FTP.Host,
				User:     cfg.FTP.User,
				Password: cfg.FTP.Password,
				Folder:   cfg.FTP.FolderPath,
			})
			if _, err := src.List(ctx); err != nil {
				fmt.Printf("ftp:     FAIL  %v\n", err)
				failures++
			} else {
				fmt.Println("ftp:     OK")
			}
		}

		if cfg.SMTP.Host != "" {
			addr := net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port))
			if conn, err := net.DialTimeout("tcp", addr, 10*time.Second); err != nil {
				fmt.Printf("smtp:    FAIL  %v\n", err)
				failures++
			} else {
				fmt.Println("smtp:    OK")
				conn.Close() //nolint:errcheck
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			fmt.Printf("store:   FAIL  %v\n", err)
			failures++
		} else {
			fmt.Println("store:   OK")
			st.Close() //nolint:errcheck
		}

		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
