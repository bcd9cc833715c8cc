// Package platform is the composition root: it wires stores, gates, the
// snapshot index, the auditor and the renderer into one Service.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/obari/ledger/pkg/adapters/fs"
	"github.com/obari/ledger/pkg/adapters/sqlite"
	"github.com/obari/ledger/pkg/audit"
	"github.com/obari/ledger/pkg/core"
	"github.com/obari/ledger/pkg/gate"
	"github.com/obari/ledger/pkg/invoice"
)

// Service bundles the ledger with its supporting components over one
// root directory. Create it with New and release it with Close.
type Service struct {
	Ledger   *core.Ledger
	Auditor  *audit.Auditor
	Renderer *invoice.Renderer

	stores core.Stores
	index  core.SnapshotIndex
	logger *slog.Logger
}

// New builds a Service rooted at the given directory. Stage snapshots live
// under {root}/base, {root}/rpt and {root}/final, rendered invoices under
// {root}/artifacts, and the snapshot index at {root}/obari.db unless
// overridden via options.
func New(root string, opts ...Option) (*Service, error) {
	if root == "" {
		return nil, fmt.Errorf("ledger root directory is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	stores := o.stores
	var err error
	if stores.Base == nil {
		stores.Base, err = newStageStore(core.StageBase, filepath.Join(root, "base"), o.logger)
		if err != nil {
			return nil, err
		}
	}
	if stores.Adjusted == nil {
		stores.Adjusted, err = newStageStore(core.StageAdjusted, filepath.Join(root, "rpt"), o.logger)
		if err != nil {
			return nil, err
		}
	}
	if stores.Final == nil {
		stores.Final, err = newStageStore(core.StageFinal, filepath.Join(root, "final"), o.logger)
		if err != nil {
			return nil, err
		}
	}

	gates := o.gates
	if gates == nil {
		gates = gate.New(o.currencies)
	}

	index := o.index
	if index == nil && !o.disableIndex {
		path := o.indexPath
		if path == "" {
			path = filepath.Join(root, "obari.db")
		}
		index, err = sqlite.Open(path, o.logger)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot index: %w", err)
		}
	}

	artifacts := o.artifactsDir
	if artifacts == "" {
		artifacts = filepath.Join(root, "artifacts")
	}

	ledger := core.NewLedger(stores, gates, index, o.logger)
	return &Service{
		Ledger: ledger,
		Auditor: &audit.Auditor{
			Base:     stores.Base,
			Adjusted: stores.Adjusted,
			Final:    stores.Final,
			Logger:   o.logger,
		},
		Renderer: &invoice.Renderer{
			Ledger:   ledger,
			Dir:      artifacts,
			Logger:   o.logger,
			MaxLines: o.maxInvoiceLines,
		},
		stores: stores,
		index:  index,
		logger: o.logger,
	}, nil
}

func newStageStore(stage core.Stage, dir string, logger *slog.Logger) (core.StageStore, error) {
	store, err := fs.NewStore(fs.Config{Stage: stage, Dir: dir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("creating %s store: %w", stage, err)
	}
	return store, nil
}

// Audit runs the chain auditor over all three stages.
func (s *Service) Audit(ctx context.Context) (*audit.Report, error) {
	return s.Auditor.Run(ctx)
}

// Render produces the invoice artifact for the deal's newest FINAL snapshot.
func (s *Service) Render(ctx context.Context, dealID, bookingID string) (*invoice.Artifact, error) {
	return s.Renderer.Render(ctx, dealID, bookingID)
}

// rebuildable is satisfied by indexes that can repopulate from the stores.
type rebuildable interface {
	Rebuild(ctx context.Context, stores ...core.StageStore) error
}

// Reindex drops and repopulates the snapshot index from the stage
// directories. The files stay authoritative throughout.
func (s *Service) Reindex(ctx context.Context) error {
	rb, ok := s.index.(rebuildable)
	if !ok {
		return fmt.Errorf("snapshot index does not support rebuilds")
	}
	return rb.Rebuild(ctx, s.stores.Base, s.stores.Adjusted, s.stores.Final)
}

// Close releases the snapshot index handle. Stage stores hold no
// long-lived resources outside active watches.
func (s *Service) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}
