package core

import "context"

// StageStore defines the contract for write-once, content-addressed storage
// of one stage. Adhering to this interface keeps the core independent of the
// underlying storage mechanism (filesystem, S3, SQL, ...).
//
// Implementations must never mutate or delete an existing document: a Put of
// identical content converges on the same file, a Put of divergent content
// produces a distinct filename.
type StageStore interface {
	// Stage returns the stage this store holds.
	Stage() Stage

	// Put persists a snapshot. It computes the content hash of the payload,
	// derives the filename, and writes only if that file does not already
	// exist; an existing same-name file is an idempotent no-op success.
	// Returns the content hash and the full path of the document.
	Put(ctx context.Context, snap Snapshot) (hash string, path string, err error)

	// List returns all parseable snapshots for a deal, plus diagnostics for
	// files that were skipped. A missing store directory yields an empty
	// result, not an error.
	List(ctx context.Context, dealID string) ([]Snapshot, []Diagnostic, error)

	// ListAll returns every parseable snapshot in the store.
	ListAll(ctx context.Context) ([]Snapshot, []Diagnostic, error)

	// GetByHash loads the snapshot with the given content hash.
	// Returns ErrNotFound if no such document exists.
	GetByHash(ctx context.Context, hash string) (*Snapshot, error)
}

// Watchable defines an interface for stores that can report newly landed
// snapshot files. The watcher runs only while the caller holds ctx open.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// SnapshotIndex is an append-only index over the stores, used for
// deterministic "newest" selection without depending on directory
// enumeration order. It is a cache: the stores remain the source of truth.
type SnapshotIndex interface {
	// Append records a snapshot. Appending the same (stage, hash) twice is
	// an idempotent no-op, mirroring the stores' write-once semantics.
	Append(ctx context.Context, snap Snapshot, path string) error

	// Hashes returns the content hashes for a deal and stage, newest first.
	// Equal timestamps are ordered by ascending lexicographic hash.
	// bookingID narrows the scope when non-empty.
	Hashes(ctx context.Context, dealID string, stage Stage, bookingID string) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}

// Validator defines the per-stage business-rule gates. Gates are pure
// functions over a payload and must be re-run on every read; no prior
// validation result is ever trusted.
type Validator interface {
	Base(p Payload) error
	Adjusted(p Payload) error
	Final(p Payload) error
}
