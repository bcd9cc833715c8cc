package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Stores bundles the three stage stores a ledger operates on.
type Stores struct {
	Base     StageStore
	Adjusted StageStore
	Final    StageStore
}

// Ledger orchestrates the provenance ledger: validated write-once puts,
// newest-snapshot selection, and read-time gate re-validation. All handles
// are injected explicitly so tests and tenants get isolated stores.
type Ledger struct {
	stores Stores
	gates  Validator
	index  SnapshotIndex // optional; nil disables indexed selection
	logger *slog.Logger
}

// NewLedger creates a Ledger over the given stores and gates.
// index may be nil, in which case selection falls back to directory scans.
func NewLedger(stores Stores, gates Validator, index SnapshotIndex, logger *slog.Logger) *Ledger {
	return &Ledger{
		stores: stores,
		gates:  gates,
		index:  index,
		logger: logger,
	}
}

// Store returns the store handle for a stage.
func (l *Ledger) Store(stage Stage) StageStore {
	switch stage {
	case StageBase:
		return l.stores.Base
	case StageAdjusted:
		return l.stores.Adjusted
	case StageFinal:
		return l.stores.Final
	}
	return nil
}

// Gates returns the validator the ledger runs on writes and reads.
func (l *Ledger) Gates() Validator {
	return l.gates
}

// gateFor maps a stage to its gate function.
func (l *Ledger) gateFor(stage Stage) func(Payload) error {
	switch stage {
	case StageBase:
		return l.gates.Base
	case StageAdjusted:
		return l.gates.Adjusted
	case StageFinal:
		return l.gates.Final
	}
	return nil
}

// PutRequest carries the caller-supplied fields for a stage creation.
type PutRequest struct {
	DealID     string
	BookingID  string
	Number     string
	ParentHash string
	Payload    Payload
	At         time.Time // zero means now
}

// PutResult reports the outcome of a stage creation.
type PutResult struct {
	Hash    string `json:"hash"`
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// PutBase validates and stores a BASE snapshot.
func (l *Ledger) PutBase(ctx context.Context, req PutRequest) (*PutResult, error) {
	return l.put(ctx, StageBase, req)
}

// PutAdjusted validates and stores an ADJUSTED snapshot. The declared
// parent hash must identify an existing BASE snapshot for the same deal.
func (l *Ledger) PutAdjusted(ctx context.Context, req PutRequest) (*PutResult, error) {
	return l.put(ctx, StageAdjusted, req)
}

// PutFinal validates and stores a FINAL snapshot. The declared parent hash
// must identify an existing ADJUSTED snapshot for the same deal.
func (l *Ledger) PutFinal(ctx context.Context, req PutRequest) (*PutResult, error) {
	return l.put(ctx, StageFinal, req)
}

// Put stores a snapshot in the named stage.
func (l *Ledger) Put(ctx context.Context, stage Stage, req PutRequest) (*PutResult, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown stage: %q", stage)
	}
	return l.put(ctx, stage, req)
}

func (l *Ledger) put(ctx context.Context, stage Stage, req PutRequest) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.DealID == "" {
		return nil, &ValidationError{Code: CodeInvalidNumericField, Field: "dealId", Message: "deal ID cannot be empty"}
	}

	// Gate first: a failed validation writes nothing.
	if err := l.gateFor(stage)(req.Payload); err != nil {
		return nil, err
	}

	// Chained stages must reference an existing upstream snapshot.
	if stage.Chained() {
		if req.ParentHash == "" {
			return nil, fmt.Errorf("%w: stage %s requires a parent hash", ErrReferentialIntegrity, stage)
		}
		parent, err := l.Store(stage.Parent()).GetByHash(ctx, req.ParentHash)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no %s snapshot with hash %s", ErrReferentialIntegrity, stage.Parent(), req.ParentHash)
		}
		if err != nil {
			return nil, err
		}
		if parent.DealID != req.DealID {
			return nil, fmt.Errorf("%w: parent %s belongs to deal %s, not %s", ErrReferentialIntegrity, req.ParentHash, parent.DealID, req.DealID)
		}
	}

	// Version is informational only; derived from what the store holds now.
	existing, _, err := l.Store(stage).List(ctx, req.DealID)
	if err != nil {
		return nil, err
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	snap := Snapshot{
		DealID:     req.DealID,
		BookingID:  req.BookingID,
		Number:     req.Number,
		Currency:   req.Payload.Currency,
		StageTag:   stage,
		ParentHash: req.ParentHash,
		At:         at,
		Version:    len(existing) + 1,
		Payload:    req.Payload,
	}

	hash, path, err := l.Store(stage).Put(ctx, snap)
	if err != nil {
		return nil, err
	}
	snap.Hash = hash

	// An idempotent re-put reports the version the stored envelope carries,
	// not a freshly recounted one.
	for _, prior := range existing {
		if prior.Hash == hash && prior.ParentHash == req.ParentHash {
			snap.Version = prior.Version
			break
		}
	}

	if l.index != nil {
		// The index is a cache; a failed append degrades selection to a
		// directory scan instead of failing the write.
		if err := l.index.Append(ctx, snap, path); err != nil && l.logger != nil {
			l.logger.Warn("index append failed", "stage", stage, "hash", hash, "error", err)
		}
	}

	return &PutResult{Hash: hash, Path: path, Version: snap.Version}, nil
}

// FindLatest returns the most recent parseable snapshot for a deal and
// stage, optionally narrowed by bookingID. Ties on the timestamp are broken
// by ascending lexicographic hash order. Zero matches returns (nil, nil).
//
// FindLatest does not run the stage gate; callers that consume the payload
// must re-validate it themselves (see FindLatestValid and invoice.Renderer).
func (l *Ledger) FindLatest(ctx context.Context, dealID string, stage Stage, bookingID string) (*Snapshot, error) {
	candidates, err := l.candidates(ctx, dealID, stage, bookingID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	snap := candidates[0]
	return &snap, nil
}

// FindLatestValid returns the most recent snapshot whose payload passes the
// stage gate right now. Snapshots failing the gate are skipped, newest
// first, so a bad write never shadows an older valid one.
func (l *Ledger) FindLatestValid(ctx context.Context, dealID string, stage Stage, bookingID string) (*Snapshot, error) {
	candidates, err := l.candidates(ctx, dealID, stage, bookingID)
	if err != nil {
		return nil, err
	}
	gate := l.gateFor(stage)
	for i := range candidates {
		if err := gate(candidates[i].Payload); err != nil {
			if l.logger != nil {
				l.logger.Warn("skipping snapshot failing gate", "stage", stage, "hash", candidates[i].Hash, "error", err)
			}
			continue
		}
		return &candidates[i], nil
	}
	return nil, nil
}

// candidates returns the snapshots for a deal and stage, newest first.
// The index path and the scan path must agree on ordering.
func (l *Ledger) candidates(ctx context.Context, dealID string, stage Stage, bookingID string) ([]Snapshot, error) {
	store := l.Store(stage)

	if l.index != nil {
		hashes, err := l.index.Hashes(ctx, dealID, stage, bookingID)
		if err == nil && len(hashes) > 0 {
			snaps := make([]Snapshot, 0, len(hashes))
			for _, h := range hashes {
				snap, err := store.GetByHash(ctx, h)
				if errors.Is(err, ErrNotFound) {
					// Stale index entry; the files are authoritative.
					continue
				}
				if errors.Is(err, ErrCorruptData) {
					// Same tolerance the scan path has: a damaged file is
					// logged and skipped, never fatal.
					if l.logger != nil {
						l.logger.Warn("skipping corrupt snapshot", "stage", stage, "hash", h, "error", err)
					}
					continue
				}
				if err != nil {
					return nil, err
				}
				snaps = append(snaps, *snap)
			}
			if len(snaps) > 0 {
				return snaps, nil
			}
		}
		if err != nil && l.logger != nil {
			l.logger.Warn("index lookup failed, falling back to scan", "stage", stage, "error", err)
		}
	}

	snaps, _, err := store.List(ctx, dealID)
	if err != nil {
		return nil, err
	}
	filtered := snaps[:0]
	for _, s := range snaps {
		if bookingID != "" && s.BookingID != bookingID {
			continue
		}
		filtered = append(filtered, s)
	}
	SortNewestFirst(filtered)
	return filtered, nil
}

// SortNewestFirst orders snapshots by descending timestamp, breaking ties
// by ascending lexicographic hash.
func SortNewestFirst(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].At.Equal(snaps[j].At) {
			return snaps[i].At.After(snaps[j].At)
		}
		return snaps[i].Hash < snaps[j].Hash
	})
}

// Watch observes newly landed snapshots in a stage store, if supported.
func (l *Ledger) Watch(ctx context.Context, stage Stage) (<-chan Event, error) {
	w, ok := l.Store(stage).(Watchable)
	if !ok {
		return nil, errors.New("store does not support watching")
	}
	return w.Watch(ctx)
}
