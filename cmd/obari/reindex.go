package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// reindexCmd represents the reindex command
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the snapshot index from the stage directories",
	Long: `Drop the snapshot index and repopulate it by scanning the stage
directories. The files are authoritative; use this after restoring from a
backup or when the index is suspected stale.`,
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize ledger", err)
		}
		defer service.Close()

		if err := service.Reindex(context.Background()); err != nil {
			fatal("Reindex failed", err)
		}
		fmt.Println("Snapshot index rebuilt.")
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
