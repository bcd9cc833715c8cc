package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obari/ledger/pkg/core"
)

var watchStage string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream snapshots landing in a stage directory",
	Long: `Watch a stage directory and print an event for every snapshot that
lands there, including ones already present. Runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		stage := core.Stage(watchStage)
		if !stage.Valid() {
			fatal("Invalid stage", fmt.Errorf("want base, rpt or final, got %q", watchStage))
		}

		service, err := newService()
		if err != nil {
			fatal("Failed to initialize ledger", err)
		}
		defer service.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		events, err := service.Ledger.Watch(ctx, stage)
		if err != nil {
			fatal("Failed to start watch", err)
		}

		fmt.Printf("Watching %s snapshots. Ctrl-C to stop.\n", stage)
		for event := range events {
			fmt.Println(event.String())
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchStage, "stage", "base", "Stage to watch: base, rpt or final")
	rootCmd.AddCommand(watchCmd)
}
