package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obari/ledger/pkg/core"
)

var (
	latestDeal    string
	latestBooking string
	latestStage   string
	latestValid   bool
)

// latestCmd represents the latest command
var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest snapshot for a deal and stage",
	Long: `Select the most recent snapshot for a deal in the given stage. With
--valid, snapshots failing their stage gate are skipped, newest first, so a
bad write never shadows an older valid one.`,
	Run: func(cmd *cobra.Command, args []string) {
		if latestDeal == "" {
			fmt.Println("Error: --deal is required")
			cmd.Usage()
			os.Exit(1)
		}
		stage := core.Stage(latestStage)
		if !stage.Valid() {
			fatal("Invalid stage", fmt.Errorf("want base, rpt or final, got %q", latestStage))
		}

		service, err := newService()
		if err != nil {
			fatal("Failed to initialize ledger", err)
		}
		defer service.Close()

		ctx := context.Background()
		var snap *core.Snapshot
		if latestValid {
			snap, err = service.Ledger.FindLatestValid(ctx, latestDeal, stage, latestBooking)
		} else {
			snap, err = service.Ledger.FindLatest(ctx, latestDeal, stage, latestBooking)
		}
		if err != nil {
			fatal("Failed to select snapshot", err)
		}
		if snap == nil {
			fmt.Printf("No %s snapshot found for deal '%s'.\n", stage, latestDeal)
			os.Exit(1)
		}

		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			fatal("Failed to encode snapshot", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	latestCmd.Flags().StringVar(&latestDeal, "deal", "", "Deal ID (required)")
	latestCmd.Flags().StringVar(&latestBooking, "booking", "", "Booking ID to narrow the selection")
	latestCmd.Flags().StringVar(&latestStage, "stage", "final", "Stage to select from: base, rpt or final")
	latestCmd.Flags().BoolVar(&latestValid, "valid", false, "Skip snapshots failing their stage gate")
	rootCmd.AddCommand(latestCmd)
}
