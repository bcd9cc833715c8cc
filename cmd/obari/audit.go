package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var auditJSON bool

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the hash chains across all stages",
	Long: `Walk every snapshot in every stage and verify the chain links: each
ADJUSTED must reference an existing BASE, each FINAL an existing ADJUSTED.
Corrupt files are reported as warnings. The audit never writes; exit code 2
signals at least one broken link.`,
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize ledger", err)
		}
		defer service.Close()

		report, err := service.Audit(context.Background())
		if err != nil {
			fatal("Audit failed", err)
		}

		if auditJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fatal("Failed to encode report", err)
			}
			fmt.Println(string(out))
		} else {
			fmt.Printf("Audit %s: %d pass, %d warn, %d fail\n", report.ID, report.Pass, report.Warn, report.Fail)
			for _, f := range report.Findings {
				fmt.Printf("  [%s] %s deal=%s hash=%s %s\n", f.Status, f.Code, f.DealID, f.Hash, f.Detail)
			}
		}

		if report.Fail > 0 {
			os.Exit(2)
		}
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Emit the report as JSON")
	rootCmd.AddCommand(auditCmd)
}
