// Package invoice renders the newest FINAL snapshot of a deal into a
// durable, provenance-stamped artifact. Rendering is the canonical consumer
// of FINAL documents and re-runs the stage gate on the loaded payload no
// matter what; no stored validity marker is ever trusted.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/obari/ledger/pkg/adapters/fs"
	"github.com/obari/ledger/pkg/core"
)

const (
	// defaultMaxLines caps the rendered line table.
	defaultMaxLines = 20
	// hashDisplayLen is how many hash characters the provenance footer shows.
	hashDisplayLen = 12
)

// Artifact locates a rendered invoice and its provenance chain.
type Artifact struct {
	Path       string          `json:"path"`
	Provenance core.Provenance `json:"provenance"`
}

// Renderer produces invoice artifacts from FINAL snapshots.
type Renderer struct {
	Ledger   *core.Ledger
	Dir      string
	Logger   *slog.Logger
	MaxLines int // zero means defaultMaxLines
}

// Render loads the newest FINAL snapshot for the deal, re-validates it, and
// persists the rendered artifact under a path derived from the FINAL hash.
// Repeated renders of identical inputs converge on the same file.
//
// Failure modes: no FINAL snapshot -> core.ErrNotFound; the payload fails
// the gate -> core.ErrGateConflict and no artifact is produced; a broken
// provenance link -> core.ErrReferentialIntegrity; storage failures are
// fatal and surfaced without retry.
func (r *Renderer) Render(ctx context.Context, dealID, bookingID string) (*Artifact, error) {
	snap, err := r.Ledger.FindLatest(ctx, dealID, core.StageFinal, bookingID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: no final snapshot for deal %s", core.ErrNotFound, dealID)
	}

	// Mandatory re-validation. This is the component's core safety
	// contract: the gate runs on every read, never from a cached result.
	if err := r.Ledger.Gates().Final(snap.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrGateConflict, err)
	}

	prov, err := r.provenance(ctx, snap)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s-%s-invoice.txt", snap.DealID, snap.Hash)
	fullPath := filepath.Join(r.Dir, name)

	if _, err := os.Stat(fullPath); err == nil {
		// Identical input, identical artifact: nothing to do.
		if r.Logger != nil {
			r.Logger.Debug("artifact already rendered", "path", fullPath)
		}
		return &Artifact{Path: fullPath, Provenance: *prov}, nil
	} else if !os.IsNotExist(err) {
		return nil, &core.StorageError{Op: "stat", Path: fullPath, Err: err}
	}

	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return nil, &core.StorageError{Op: "mkdir", Path: r.Dir, Err: err}
	}
	if err := fs.WriteFileAtomic(fullPath, []byte(r.layout(snap, prov)), 0644); err != nil {
		return nil, &core.StorageError{Op: "write", Path: fullPath, Err: err}
	}

	if r.Logger != nil {
		r.Logger.Info("invoice rendered", "deal", snap.DealID, "path", fullPath)
	}

	return &Artifact{Path: fullPath, Provenance: *prov}, nil
}

// provenance walks FINAL -> ADJUSTED -> BASE and verifies each link exists.
func (r *Renderer) provenance(ctx context.Context, final *core.Snapshot) (*core.Provenance, error) {
	adjusted, err := r.Ledger.Store(core.StageAdjusted).GetByHash(ctx, final.ParentHash)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: final %s references missing adjusted %s", core.ErrReferentialIntegrity, final.Hash, final.ParentHash)
	}
	if err != nil {
		return nil, err
	}

	if _, err := r.Ledger.Store(core.StageBase).GetByHash(ctx, adjusted.ParentHash); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: adjusted %s references missing base %s", core.ErrReferentialIntegrity, adjusted.Hash, adjusted.ParentHash)
		}
		return nil, err
	}

	return &core.Provenance{
		BaseHash:     adjusted.ParentHash,
		AdjustedHash: final.ParentHash,
		FinalHash:    final.Hash,
	}, nil
}

// layout produces the fixed-layout artifact text: header, capped line
// table, totals, and the provenance footer.
func (r *Renderer) layout(snap *core.Snapshot, prov *core.Provenance) string {
	maxLines := r.MaxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}

	var sb strings.Builder

	sb.WriteString("INVOICE\n")
	sb.WriteString(strings.Repeat("=", 72) + "\n")
	sb.WriteString(fmt.Sprintf("Deal:     %s\n", snap.DealID))
	if snap.BookingID != "" {
		sb.WriteString(fmt.Sprintf("Booking:  %s\n", snap.BookingID))
	}
	if snap.Number != "" {
		sb.WriteString(fmt.Sprintf("Number:   %s\n", snap.Number))
	}
	sb.WriteString(fmt.Sprintf("Currency: %s\n", snap.Currency))
	sb.WriteString(fmt.Sprintf("Issued:   %s\n", snap.At.Format("2006-01-02")))
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	sb.WriteString(fmt.Sprintf("%-20s %10s %12s %8s %14s\n", "SKU", "QTY", "UNIT PRICE", "TAX", "LINE TOTAL"))

	lines := snap.Payload.Lines
	overflow := 0
	if len(lines) > maxLines {
		overflow = len(lines) - maxLines
		lines = lines[:maxLines]
	}
	for _, line := range lines {
		lineSubtotal := line.Qty * line.UnitPrice
		lineTotal := lineSubtotal + lineSubtotal*line.TaxRate
		sb.WriteString(fmt.Sprintf("%-20s %10.2f %12.2f %7.1f%% %14.2f\n",
			line.SKU, line.Qty, line.UnitPrice, line.TaxRate*100, lineTotal))
	}
	if overflow > 0 {
		sb.WriteString(fmt.Sprintf("... and %d more lines\n", overflow))
	}

	// Declared totals, not recomputed ones: the gate has already bounded
	// them, and the artifact must match the accepted document.
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	sb.WriteString(fmt.Sprintf("%-44s %24.2f\n", "Subtotal", snap.Payload.Subtotal))
	sb.WriteString(fmt.Sprintf("%-44s %24.2f\n", "Tax", snap.Payload.TaxTotal))
	sb.WriteString(fmt.Sprintf("%-44s %24.2f\n", "TOTAL", snap.Payload.Total))
	sb.WriteString(strings.Repeat("=", 72) + "\n")
	sb.WriteString("Provenance\n")
	sb.WriteString(fmt.Sprintf("  base:     %s\n", truncateHash(prov.BaseHash)))
	sb.WriteString(fmt.Sprintf("  adjusted: %s\n", truncateHash(prov.AdjustedHash)))
	sb.WriteString(fmt.Sprintf("  final:    %s\n", truncateHash(prov.FinalHash)))

	return sb.String()
}

func truncateHash(h string) string {
	if len(h) <= hashDisplayLen {
		return h
	}
	return h[:hashDisplayLen]
}
