package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	obari "github.com/obari/ledger"
)

var (
	verbose    bool
	rootDir    string
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "obari",
	Short: "A content-addressed provenance ledger for deal billing documents",
	Long: `OBARI stores every billing stage of a deal as an immutable, hash-named
JSON document. BASE, ADJUSTED and FINAL snapshots chain to each other by
content hash, so the full provenance of an invoice is verifiable from the
files alone.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Ledger root directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}

// newService assembles the ledger service from config file, environment and
// flags. Flag values win over environment values, which win over the file.
func newService() (*obari.Service, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	if cfg.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		cfg.Root = cwd
	}

	opts := []obari.Option{
		obari.WithLogger(slog.Default()),
	}
	if len(cfg.Currencies) > 0 {
		opts = append(opts, obari.WithCurrencies(cfg.Currencies))
	}
	if cfg.IndexPath != "" {
		opts = append(opts, obari.WithIndexPath(cfg.IndexPath))
	}
	if cfg.DisableIndex {
		opts = append(opts, obari.WithIndexDisabled(true))
	}
	if cfg.ArtifactsDir != "" {
		opts = append(opts, obari.WithArtifactsDir(cfg.ArtifactsDir))
	}
	if cfg.MaxInvoiceLines > 0 {
		opts = append(opts, obari.WithMaxInvoiceLines(cfg.MaxInvoiceLines))
	}

	return obari.New(cfg.Root, opts...)
}
