package invoice_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obari/ledger/pkg/adapters/fs"
	"github.com/obari/ledger/pkg/core"
	"github.com/obari/ledger/pkg/gate"
	"github.com/obari/ledger/pkg/invoice"
)

type fixture struct {
	ledger   *core.Ledger
	renderer *invoice.Renderer
	final    *fs.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	newStore := func(stage core.Stage) *fs.Store {
		store, err := fs.NewStore(fs.Config{Stage: stage, Dir: filepath.Join(root, string(stage))})
		require.NoError(t, err)
		return store
	}

	base := newStore(core.StageBase)
	adjusted := newStore(core.StageAdjusted)
	final := newStore(core.StageFinal)

	ledger := core.NewLedger(core.Stores{Base: base, Adjusted: adjusted, Final: final}, gate.New(nil), nil, nil)
	renderer := &invoice.Renderer{Ledger: ledger, Dir: filepath.Join(root, "artifacts")}

	return &fixture{ledger: ledger, renderer: renderer, final: final}
}

func chainPayload() core.Payload {
	return core.Payload{
		Currency: "USD",
		Lines:    []core.LineItem{{SKU: "X", Qty: 1, UnitPrice: 100, TaxRate: 0.1}},
		Subtotal: 100.00,
		TaxTotal: 10.00,
		Total:    110.00,
	}
}

// buildChain creates BASE -> ADJUSTED -> FINAL for deal D1 and returns the
// three hashes.
func buildChain(t *testing.T, f *fixture) (string, string, string) {
	t.Helper()
	ctx := context.Background()

	p := chainPayload()
	rb, err := f.ledger.PutBase(ctx, core.PutRequest{DealID: "D1", Payload: p})
	require.NoError(t, err)
	ra, err := f.ledger.PutAdjusted(ctx, core.PutRequest{DealID: "D1", ParentHash: rb.Hash, Payload: p})
	require.NoError(t, err)
	rf, err := f.ledger.PutFinal(ctx, core.PutRequest{DealID: "D1", ParentHash: ra.Hash, Payload: p})
	require.NoError(t, err)

	return rb.Hash, ra.Hash, rf.Hash
}

func TestRender(t *testing.T) {
	ctx := context.Background()

	t.Run("End To End Chain", func(t *testing.T) {
		f := setup(t)
		h1, h2, h3 := buildChain(t, f)

		artifact, err := f.renderer.Render(ctx, "D1", "")
		require.NoError(t, err)

		assert.Equal(t, core.Provenance{BaseHash: h1, AdjustedHash: h2, FinalHash: h3}, artifact.Provenance)

		content, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)
		text := string(content)

		assert.Contains(t, text, "Deal:     D1")
		assert.Contains(t, text, "110.00")
		assert.Contains(t, text, h1[:12])
		assert.Contains(t, text, h2[:12])
		assert.Contains(t, text, h3[:12])
	})

	t.Run("Idempotent Re-Render", func(t *testing.T) {
		f := setup(t)
		buildChain(t, f)

		a1, err := f.renderer.Render(ctx, "D1", "")
		require.NoError(t, err)
		a2, err := f.renderer.Render(ctx, "D1", "")
		require.NoError(t, err)

		assert.Equal(t, a1.Path, a2.Path)

		entries, err := os.ReadDir(f.renderer.Dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("No Final Is Not Found", func(t *testing.T) {
		f := setup(t)

		_, err := f.renderer.Render(ctx, "D1", "")
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Gate Failure Is Conflict Without Artifact", func(t *testing.T) {
		f := setup(t)
		_, h2, _ := buildChain(t, f)

		// Land a newer FINAL with a broken declared total directly in the
		// store, bypassing the write gate.
		bad := chainPayload()
		bad.Total = 999.99
		_, _, err := f.final.Put(ctx, core.Snapshot{
			DealID:     "D1",
			ParentHash: h2,
			At:         time.Now().UTC().Add(time.Hour),
			Payload:    bad,
		})
		require.NoError(t, err)

		_, err = f.renderer.Render(ctx, "D1", "")
		require.ErrorIs(t, err, core.ErrGateConflict)

		_, statErr := os.Stat(f.renderer.Dir)
		assert.True(t, os.IsNotExist(statErr), "no artifact directory should be created on conflict")
	})

	t.Run("Declared Totals Within Tolerance Render As Declared", func(t *testing.T) {
		f := setup(t)

		// One cent above the recomputed 10.00; the gate accepts it and the
		// artifact must show the declared figures.
		p := core.Payload{
			Currency: "USD",
			Lines:    []core.LineItem{{SKU: "S", Qty: 1, UnitPrice: 10, TaxRate: 0}},
			Subtotal: 10.01,
			TaxTotal: 0,
			Total:    10.01,
		}

		rb, err := f.ledger.PutBase(ctx, core.PutRequest{DealID: "D3", Payload: p})
		require.NoError(t, err)
		ra, err := f.ledger.PutAdjusted(ctx, core.PutRequest{DealID: "D3", ParentHash: rb.Hash, Payload: p})
		require.NoError(t, err)
		_, err = f.ledger.PutFinal(ctx, core.PutRequest{DealID: "D3", ParentHash: ra.Hash, Payload: p})
		require.NoError(t, err)

		artifact, err := f.renderer.Render(ctx, "D3", "")
		require.NoError(t, err)

		content, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)
		text := string(content)

		assert.Contains(t, text, fmt.Sprintf("%-44s %24.2f", "Subtotal", 10.01))
		assert.Contains(t, text, fmt.Sprintf("%-44s %24.2f", "TOTAL", 10.01))
	})

	t.Run("Line Table Cap", func(t *testing.T) {
		f := setup(t)
		f.renderer.MaxLines = 2

		p := core.Payload{Currency: "USD"}
		for i := 0; i < 5; i++ {
			p.Lines = append(p.Lines, core.LineItem{SKU: "S", Qty: 1, UnitPrice: 10, TaxRate: 0})
		}
		p.Subtotal, p.TaxTotal, p.Total = 50, 0, 50

		rb, err := f.ledger.PutBase(ctx, core.PutRequest{DealID: "D2", Payload: p})
		require.NoError(t, err)
		ra, err := f.ledger.PutAdjusted(ctx, core.PutRequest{DealID: "D2", ParentHash: rb.Hash, Payload: p})
		require.NoError(t, err)
		_, err = f.ledger.PutFinal(ctx, core.PutRequest{DealID: "D2", ParentHash: ra.Hash, Payload: p})
		require.NoError(t, err)

		artifact, err := f.renderer.Render(ctx, "D2", "")
		require.NoError(t, err)

		content, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "... and 3 more lines")
	})
}
