package platform

import (
	"log/slog"

	"github.com/obari/ledger/pkg/core"
)

// options holds the internal configuration for the ledger service.
type options struct {
	logger          *slog.Logger
	currencies      []string
	indexPath       string
	disableIndex    bool
	artifactsDir    string
	maxInvoiceLines int
	stores          core.Stores
	index           core.SnapshotIndex
	gates           core.Validator
}

// Option defines a functional option for configuring the service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger:     nil,
		currencies: nil, // gate.DefaultCurrencies
	}
}

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCurrencies overrides the supported currency set.
func WithCurrencies(currencies []string) Option {
	return func(o *options) {
		o.currencies = currencies
	}
}

// WithIndexPath places the snapshot index database at the given path.
// Defaults to {root}/obari.db.
func WithIndexPath(path string) Option {
	return func(o *options) {
		o.indexPath = path
	}
}

// WithIndexDisabled turns off the snapshot index entirely; newest-snapshot
// selection falls back to directory scans.
func WithIndexDisabled(disabled bool) Option {
	return func(o *options) {
		o.disableIndex = disabled
	}
}

// WithArtifactsDir overrides where rendered invoices land.
// Defaults to {root}/artifacts.
func WithArtifactsDir(dir string) Option {
	return func(o *options) {
		o.artifactsDir = dir
	}
}

// WithMaxInvoiceLines caps the rendered line table.
func WithMaxInvoiceLines(n int) Option {
	return func(o *options) {
		o.maxInvoiceLines = n
	}
}

// WithStores injects custom stage stores (e.g. mocks, alternative backends).
// Any nil field falls back to the default filesystem store.
func WithStores(stores core.Stores) Option {
	return func(o *options) {
		o.stores = stores
	}
}

// WithSnapshotIndex injects a custom snapshot index implementation.
func WithSnapshotIndex(index core.SnapshotIndex) Option {
	return func(o *options) {
		o.index = index
	}
}

// WithGates injects a custom validator, replacing the default gate set.
func WithGates(gates core.Validator) Option {
	return func(o *options) {
		o.gates = gates
	}
}
