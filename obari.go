package obari

import (
	"log/slog"

	"github.com/obari/ledger/internal/platform"
	"github.com/obari/ledger/pkg/core"
)

// Version exposes the version of the library.
const Version = "0.1.0"

// --- Types ---

// Snapshot is a public alias for the immutable stage document.
type Snapshot = core.Snapshot

// Payload is a public alias for the monetary content of a snapshot.
type Payload = core.Payload

// LineItem is a public alias for one invoice line.
type LineItem = core.LineItem

// Stage is a public alias for the lifecycle stage tag.
type Stage = core.Stage

// PutRequest is a public alias for the stage creation input.
type PutRequest = core.PutRequest

// PutResult is a public alias for the stage creation outcome.
type PutResult = core.PutResult

// Provenance is a public alias for the resolved hash chain of a deal.
type Provenance = core.Provenance

// Stage tags, in chain order.
const (
	StageBase     = core.StageBase
	StageAdjusted = core.StageAdjusted
	StageFinal    = core.StageFinal
)

// Service is a public alias for the assembled ledger service.
type Service = platform.Service

// --- Configuration ---

// Option defines a functional option for configuring the ledger.
type Option = platform.Option

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithCurrencies overrides the supported currency set.
func WithCurrencies(currencies []string) Option {
	return platform.WithCurrencies(currencies)
}

// WithIndexPath places the snapshot index database at the given path.
func WithIndexPath(path string) Option {
	return platform.WithIndexPath(path)
}

// WithIndexDisabled turns off the snapshot index entirely.
func WithIndexDisabled(disabled bool) Option {
	return platform.WithIndexDisabled(disabled)
}

// WithArtifactsDir overrides where rendered invoices land.
func WithArtifactsDir(dir string) Option {
	return platform.WithArtifactsDir(dir)
}

// WithMaxInvoiceLines caps the rendered line table.
func WithMaxInvoiceLines(n int) Option {
	return platform.WithMaxInvoiceLines(n)
}

// WithStores allows injecting custom stage stores.
func WithStores(stores core.Stores) Option {
	return platform.WithStores(stores)
}

// WithSnapshotIndex allows injecting a custom snapshot index.
func WithSnapshotIndex(index core.SnapshotIndex) Option {
	return platform.WithSnapshotIndex(index)
}

// WithGates allows injecting a custom validator.
func WithGates(gates core.Validator) Option {
	return platform.WithGates(gates)
}

// --- Factory ---

// New creates a ledger Service rooted at the given directory.
func New(root string, opts ...Option) (*Service, error) {
	return platform.New(root, opts...)
}
