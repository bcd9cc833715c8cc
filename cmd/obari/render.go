package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	renderDeal    string
	renderBooking string
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the invoice for a deal's newest FINAL snapshot",
	Long: `Load the newest FINAL snapshot for the deal, re-validate it against the
stage gate, resolve its full hash chain and write the invoice artifact. The
artifact path embeds the FINAL hash, so re-rendering the same snapshot is a
no-op.`,
	Run: func(cmd *cobra.Command, args []string) {
		if renderDeal == "" {
			fmt.Println("Error: --deal is required")
			cmd.Usage()
			os.Exit(1)
		}

		service, err := newService()
		if err != nil {
			fatal("Failed to initialize ledger", err)
		}
		defer service.Close()

		artifact, err := service.Render(context.Background(), renderDeal, renderBooking)
		if err != nil {
			fatal("Failed to render invoice", err)
		}

		fmt.Printf("Rendered invoice for deal '%s'.\n", renderDeal)
		fmt.Printf("  artifact: %s\n", artifact.Path)
		fmt.Printf("  base:     %s\n", artifact.Provenance.BaseHash)
		fmt.Printf("  adjusted: %s\n", artifact.Provenance.AdjustedHash)
		fmt.Printf("  final:    %s\n", artifact.Provenance.FinalHash)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderDeal, "deal", "", "Deal ID (required)")
	renderCmd.Flags().StringVar(&renderBooking, "booking", "", "Booking ID to narrow the selection")
	rootCmd.AddCommand(renderCmd)
}
