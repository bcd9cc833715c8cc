package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obari/ledger/pkg/adapters/fs"
	"github.com/obari/ledger/pkg/core"
)

// setupStore creates a stage store rooted in a fresh temp directory.
func setupStore(t *testing.T, stage core.Stage) (*fs.Store, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), string(stage))
	store, err := fs.NewStore(fs.Config{Stage: stage, Dir: dir})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, dir
}

func payload(total float64) core.Payload {
	return core.Payload{
		Currency: "USD",
		Lines: []core.LineItem{
			{SKU: "X", Qty: 1, UnitPrice: total, TaxRate: 0},
		},
		Subtotal: total,
		TaxTotal: 0,
		Total:    total,
	}
}

func TestPut(t *testing.T) {
	ctx := context.Background()

	t.Run("Base Filename Convention", func(t *testing.T) {
		store, dir := setupStore(t, core.StageBase)

		hash, path, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(100)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if len(hash) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(hash))
		}
		want := filepath.Join(dir, "D1-"+hash+".json")
		if path != want {
			t.Errorf("expected path %s, got %s", want, path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected file on disk: %v", err)
		}
	})

	t.Run("Chained Filename Embeds Parent Hash", func(t *testing.T) {
		store, dir := setupStore(t, core.StageAdjusted)

		parent := strings.Repeat("a", 64)
		hash, path, err := store.Put(ctx, core.Snapshot{DealID: "D1", ParentHash: parent, Payload: payload(100)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		want := filepath.Join(dir, "D1-"+parent+"-"+hash+"-rpt.json")
		if path != want {
			t.Errorf("expected path %s, got %s", want, path)
		}
	})

	t.Run("Chained Stage Requires Parent", func(t *testing.T) {
		store, _ := setupStore(t, core.StageFinal)

		_, _, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(100)})
		if err == nil {
			t.Fatal("expected error for missing parent hash")
		}
	})

	t.Run("Idempotent For Identical Content", func(t *testing.T) {
		store, dir := setupStore(t, core.StageBase)

		snap := core.Snapshot{DealID: "D1", Payload: payload(100)}
		h1, p1, err := store.Put(ctx, snap)
		if err != nil {
			t.Fatalf("first Put failed: %v", err)
		}
		h2, p2, err := store.Put(ctx, snap)
		if err != nil {
			t.Fatalf("second Put failed: %v", err)
		}
		if h1 != h2 || p1 != p2 {
			t.Errorf("expected identical outcome, got (%s,%s) vs (%s,%s)", h1, p1, h2, p2)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected exactly one file, got %d", len(entries))
		}
	})

	t.Run("Never Overwrites Divergent Content", func(t *testing.T) {
		store, dir := setupStore(t, core.StageBase)

		h1, _, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(100)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		h2, _, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(200)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if h1 == h2 {
			t.Fatal("expected distinct hashes for distinct payloads")
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir failed: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected both documents retained, got %d files", len(entries))
		}
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Directory Is Empty Not Error", func(t *testing.T) {
		store, _ := setupStore(t, core.StageBase)

		snaps, diags, err := store.List(ctx, "D1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 0 || len(diags) != 0 {
			t.Errorf("expected empty result, got %d snaps, %d diags", len(snaps), len(diags))
		}
	})

	t.Run("Skips Corrupt Files With Diagnostics", func(t *testing.T) {
		store, dir := setupStore(t, core.StageBase)

		if _, _, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(100)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		bad := filepath.Join(dir, "D1-"+strings.Repeat("f", 64)+".json")
		if err := os.WriteFile(bad, []byte("not json"), 0644); err != nil {
			t.Fatalf("write corrupt file: %v", err)
		}

		snaps, diags, err := store.List(ctx, "D1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 1 {
			t.Errorf("expected 1 parseable snapshot, got %d", len(snaps))
		}
		if len(diags) != 1 {
			t.Fatalf("expected 1 diagnostic, got %d", len(diags))
		}
		if diags[0].Path != bad {
			t.Errorf("diagnostic points at %s, expected %s", diags[0].Path, bad)
		}
	})

	t.Run("Detects Tampered Payload", func(t *testing.T) {
		store, _ := setupStore(t, core.StageBase)

		_, path, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(100)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		tampered := strings.Replace(string(data), `"total": 100`, `"total": 999`, 1)
		if tampered == string(data) {
			t.Fatal("tamper replacement made no change")
		}
		if err := os.WriteFile(path, []byte(tampered), 0644); err != nil {
			t.Fatalf("write tampered file: %v", err)
		}

		snaps, diags, err := store.List(ctx, "D1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("tampered snapshot should not parse, got %d", len(snaps))
		}
		if len(diags) != 1 {
			t.Errorf("expected hash-mismatch diagnostic, got %d", len(diags))
		}
	})

	t.Run("Does Not Leak Other Deals", func(t *testing.T) {
		store, _ := setupStore(t, core.StageBase)

		if _, _, err := store.Put(ctx, core.Snapshot{DealID: "D1", Payload: payload(100)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		// "D1-EXT" glob-matches the "D1-*" prefilter; the envelope must win.
		if _, _, err := store.Put(ctx, core.Snapshot{DealID: "D1-EXT", Payload: payload(200)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		snaps, _, err := store.List(ctx, "D1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 1 || snaps[0].DealID != "D1" {
			t.Errorf("expected only deal D1, got %+v", snaps)
		}
	})
}

func TestGetByHash(t *testing.T) {
	ctx := context.Background()

	t.Run("Finds Stored Snapshot", func(t *testing.T) {
		store, _ := setupStore(t, core.StageBase)

		hash, _, err := store.Put(ctx, core.Snapshot{DealID: "D1", Number: "Q-001", Payload: payload(100)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		snap, err := store.GetByHash(ctx, hash)
		if err != nil {
			t.Fatalf("GetByHash failed: %v", err)
		}
		if snap.Hash != hash || snap.Number != "Q-001" {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	})

	t.Run("Unknown Hash Is ErrNotFound", func(t *testing.T) {
		store, _ := setupStore(t, core.StageBase)

		_, err := store.GetByHash(ctx, strings.Repeat("0", 64))
		if err != core.ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
