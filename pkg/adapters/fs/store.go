// Package fs implements the write-once, content-addressed stage store on
// the local filesystem. Documents are append-only: a put never overwrites,
// and corrections always land under a new hash-derived filename.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/obari/ledger/pkg/canonical"
	"github.com/obari/ledger/pkg/core"
)

// Config holds the configuration for a filesystem stage store.
type Config struct {
	Stage  core.Stage
	Dir    string
	Logger *slog.Logger
}

// Store implements core.StageStore for one stage directory.
type Store struct {
	stage  core.Stage
	dir    string
	logger *slog.Logger

	mu            sync.RWMutex
	watcherActive bool
}

// NewStore creates a stage store rooted at cfg.Dir. The directory is
// created lazily on the first put; listing a missing directory yields an
// empty result.
func NewStore(cfg Config) (*Store, error) {
	if !cfg.Stage.Valid() {
		return nil, fmt.Errorf("unknown stage: %q", cfg.Stage)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	return &Store{
		stage:  cfg.Stage,
		dir:    cfg.Dir,
		logger: cfg.Logger,
	}, nil
}

// Stage returns the stage this store holds.
func (s *Store) Stage() core.Stage {
	return s.stage
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a snapshot occupies in this store. The name is
// fully determined by the envelope, so no directory access is needed.
func (s *Store) Path(snap core.Snapshot) (string, error) {
	name, err := FileName(s.stage, snap.DealID, snap.Hash, snap.ParentHash)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Put persists a snapshot.
//
// Workflow:
//  1. Compute the canonical content hash of the payload.
//  2. Derive the hash-embedding filename for the stage.
//  3. If the file already exists, succeed without touching it: same name
//     implies same hash implies same content.
//  4. Otherwise serialize the envelope and write atomically (temp + rename).
func (s *Store) Put(ctx context.Context, snap core.Snapshot) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if snap.DealID == "" {
		return "", "", fmt.Errorf("snapshot has no deal ID")
	}
	if s.stage.Chained() && snap.ParentHash == "" {
		return "", "", fmt.Errorf("%w: stage %s requires a parent hash", core.ErrReferentialIntegrity, s.stage)
	}

	hash, err := canonical.HashOf(snap.Payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash payload: %w", err)
	}
	snap.Hash = hash
	snap.StageTag = s.stage
	if snap.At.IsZero() {
		snap.At = time.Now().UTC()
	}

	name, err := FileName(s.stage, snap.DealID, hash, snap.ParentHash)
	if err != nil {
		return "", "", err
	}
	fullPath := filepath.Join(s.dir, name)

	if _, err := os.Stat(fullPath); err == nil {
		// Write-once idempotence: the document is already there.
		if s.logger != nil {
			s.logger.Debug("put is a no-op, document exists", "stage", s.stage, "path", fullPath)
		}
		return hash, fullPath, nil
	} else if !os.IsNotExist(err) {
		return "", "", &core.StorageError{Op: "stat", Path: fullPath, Err: err}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", "", &core.StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if err := WriteFileAtomic(fullPath, data, 0644); err != nil {
		return "", "", &core.StorageError{Op: "write", Path: fullPath, Err: err}
	}

	if s.logger != nil {
		s.logger.Debug("snapshot written", "stage", s.stage, "deal", snap.DealID, "hash", hash)
	}

	return hash, fullPath, nil
}

// List returns all parseable snapshots for a deal. Files that fail to parse
// are skipped and reported as diagnostics, never fatal to the scan.
func (s *Store) List(ctx context.Context, dealID string) ([]core.Snapshot, []core.Diagnostic, error) {
	snaps, diags, err := s.scan(ctx, dealPattern(s.stage, dealID))
	if err != nil {
		return nil, nil, err
	}

	// The glob is a prefilter: a deal named "D1" also glob-matches files of
	// a deal named "D1-X". The envelope decides.
	filtered := snaps[:0]
	for _, snap := range snaps {
		if snap.DealID == dealID {
			filtered = append(filtered, snap)
		}
	}
	return filtered, diags, nil
}

// ListAll returns every parseable snapshot in the store.
func (s *Store) ListAll(ctx context.Context) ([]core.Snapshot, []core.Diagnostic, error) {
	return s.scan(ctx, "*"+snapshotExt)
}

// GetByHash loads the snapshot with the given content hash.
func (s *Store) GetByHash(ctx context.Context, hash string) (*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, &core.StorageError{Op: "readdir", Path: s.dir, Err: err}
	}

	suffix := hashSuffix(s.stage, hash)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		snap, err := s.parseFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrCorruptData, err)
		}
		return snap, nil
	}

	return nil, core.ErrNotFound
}

// scan enumerates the stage directory and parses every file matching the
// doublestar pattern. Corrupt files are logged, skipped, and collected as
// diagnostics.
func (s *Store) scan(ctx context.Context, pattern string) ([]core.Snapshot, []core.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &core.StorageError{Op: "readdir", Path: s.dir, Err: err}
	}

	var snaps []core.Snapshot
	var diags []core.Diagnostic

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, TempFilePrefix) {
			continue
		}
		if !stageMatch(s.stage, name) {
			continue
		}
		if ok, _ := doublestar.Match(pattern, name); !ok {
			continue
		}

		fullPath := filepath.Join(s.dir, name)
		snap, err := s.parseFile(fullPath)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping corrupt snapshot", "stage", s.stage, "path", fullPath, "error", err)
			}
			diags = append(diags, core.Diagnostic{Path: fullPath, Reason: err.Error()})
			continue
		}
		snaps = append(snaps, *snap)
	}

	return snaps, diags, nil
}

// parseFile reads and validates one stored envelope. The content hash is
// recomputed from the payload and must match both the recorded hash and the
// hash embedded in the filename.
func (s *Store) parseFile(path string) (*core.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.StorageError{Op: "read", Path: path, Err: err}
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	if snap.DealID == "" || snap.Hash == "" {
		return nil, errors.New("envelope missing dealId or hash")
	}
	if snap.StageTag != s.stage {
		return nil, fmt.Errorf("stage tag %q does not match store stage %q", snap.StageTag, s.stage)
	}

	recomputed, err := canonical.HashOf(snap.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to rehash payload: %w", err)
	}
	if recomputed != snap.Hash {
		return nil, fmt.Errorf("content hash mismatch: recorded %s, recomputed %s", snap.Hash, recomputed)
	}
	if !strings.HasSuffix(filepath.Base(path), hashSuffix(s.stage, snap.Hash)) {
		return nil, fmt.Errorf("filename does not embed content hash %s", snap.Hash)
	}

	return &snap, nil
}

var _ core.StageStore = (*Store)(nil)
