package main

import (
	"fmt"

	"github.com/spf13/cobra"

	obari "github.com/obari/ledger"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of obari",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("obari version %s\n", obari.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
