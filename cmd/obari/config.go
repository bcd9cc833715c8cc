package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the file- and environment-configurable settings. Environment
// variables use the OBARI_ prefix (e.g. OBARI_ROOT, OBARI_INDEX_PATH).
type Config struct {
	Root            string   `yaml:"root" env:"ROOT"`
	IndexPath       string   `yaml:"indexPath" env:"INDEX_PATH"`
	DisableIndex    bool     `yaml:"disableIndex" env:"DISABLE_INDEX"`
	ArtifactsDir    string   `yaml:"artifactsDir" env:"ARTIFACTS_DIR"`
	Currencies      []string `yaml:"currencies" env:"CURRENCIES"`
	MaxInvoiceLines int      `yaml:"maxInvoiceLines" env:"MAX_INVOICE_LINES"`
}

// loadConfig reads the YAML file at path (if any), then overlays environment
// variables on top. A missing file is only an error when it was requested
// explicitly.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if path == "" {
		path = "obari.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file is fine; defaults and environment apply.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "OBARI_"}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	return cfg, nil
}
