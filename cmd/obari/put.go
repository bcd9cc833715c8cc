package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/obari/ledger/pkg/core"
)

var (
	putDeal    string
	putBooking string
	putNumber  string
	putStage   string
	putParent  string
	putPayload string
	putAt      string
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Store a stage snapshot",
	Long: `Validate a payload and store it as an immutable snapshot in the given
stage. The payload is read from a JSON file, or from stdin when --payload is
"-". Adjusted and final snapshots must name their parent hash.`,
	Run: func(cmd *cobra.Command, args []string) {
		if putDeal == "" {
			fmt.Println("Error: --deal is required")
			cmd.Usage()
			os.Exit(1)
		}
		stage := core.Stage(putStage)
		if !stage.Valid() {
			fatal("Invalid stage", fmt.Errorf("want base, rpt or final, got %q", putStage))
		}

		payload, err := readPayload(putPayload)
		if err != nil {
			fatal("Failed to read payload", err)
		}

		var at time.Time
		if putAt != "" {
			at, err = time.Parse(time.RFC3339, putAt)
			if err != nil {
				fatal("Invalid --at timestamp", err)
			}
		}

		service, err := newService()
		if err != nil {
			fatal("Failed to initialize ledger", err)
		}
		defer service.Close()

		result, err := service.Ledger.Put(context.Background(), stage, core.PutRequest{
			DealID:     putDeal,
			BookingID:  putBooking,
			Number:     putNumber,
			ParentHash: putParent,
			Payload:    *payload,
			At:         at,
		})
		if err != nil {
			fatal("Failed to store snapshot", err)
		}

		fmt.Printf("Stored %s snapshot for deal '%s'.\n", stage, putDeal)
		fmt.Printf("  hash: %s\n", result.Hash)
		fmt.Printf("  path: %s\n", result.Path)
	},
}

func readPayload(source string) (*core.Payload, error) {
	if source == "" {
		return nil, fmt.Errorf("--payload is required")
	}

	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, err
	}

	var payload core.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing payload JSON: %w", err)
	}
	return &payload, nil
}

func init() {
	putCmd.Flags().StringVar(&putDeal, "deal", "", "Deal ID (required)")
	putCmd.Flags().StringVar(&putBooking, "booking", "", "Booking ID")
	putCmd.Flags().StringVar(&putNumber, "number", "", "Invoice number")
	putCmd.Flags().StringVar(&putStage, "stage", "base", "Stage to write: base, rpt or final")
	putCmd.Flags().StringVar(&putParent, "parent", "", "Parent snapshot hash (required for rpt and final)")
	putCmd.Flags().StringVar(&putPayload, "payload", "", "Path to a payload JSON file, or '-' for stdin (required)")
	putCmd.Flags().StringVar(&putAt, "at", "", "Snapshot timestamp in RFC3339 (default: now)")
	rootCmd.AddCommand(putCmd)
}
