// Package sqlite provides the append-only snapshot index. Directory
// enumeration order is not a reliable "newest" signal, so selection runs
// against an explicit index keyed by deal, stage, timestamp, and hash.
// The index is a cache: the stage stores remain the source of truth, and
// Rebuild reconstructs it from a full scan at any time.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/obari/ledger/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	deal_id     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	booking_id  TEXT NOT NULL DEFAULT '',
	number      TEXT NOT NULL DEFAULT '',
	currency    TEXT NOT NULL DEFAULT '',
	hash        TEXT NOT NULL,
	parent_hash TEXT NOT NULL DEFAULT '',
	at_ns       INTEGER NOT NULL,
	version     INTEGER NOT NULL DEFAULT 0,
	path        TEXT NOT NULL,
	PRIMARY KEY (stage, hash)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_latest
	ON snapshots (deal_id, stage, at_ns DESC, hash ASC);
`

// Index persists snapshot metadata in SQLite.
type Index struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// toNanos keeps the full timestamp resolution, so ordering here matches a
// directory scan comparing time.Time values exactly.
func toNanos(value time.Time) int64 {
	return value.UTC().UnixNano()
}

// Open opens (or creates) the index database and applies the schema.
func Open(path string, logger *slog.Logger) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("index path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Index{sqlDB: sqlDB, logger: logger}, nil
}

// Close closes the SQLite handle.
func (ix *Index) Close() error {
	if ix == nil || ix.sqlDB == nil {
		return nil
	}
	return ix.sqlDB.Close()
}

// Append records one snapshot. Re-appending the same (stage, hash) is an
// idempotent no-op, mirroring the stores' write-once semantics.
func (ix *Index) Append(ctx context.Context, snap core.Snapshot, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.DealID == "" || snap.Hash == "" {
		return fmt.Errorf("snapshot missing deal id or hash")
	}

	_, err := ix.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO snapshots (
		   deal_id, stage, booking_id, number, currency,
		   hash, parent_hash, at_ns, version, path
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.DealID,
		string(snap.StageTag),
		snap.BookingID,
		snap.Number,
		snap.Currency,
		snap.Hash,
		snap.ParentHash,
		toNanos(snap.At),
		snap.Version,
		path,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Hashes returns the content hashes for a deal and stage, newest first,
// ties broken by ascending lexicographic hash. bookingID narrows the scope
// when non-empty.
func (ix *Index) Hashes(ctx context.Context, dealID string, stage core.Stage, bookingID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT hash FROM snapshots WHERE deal_id = ? AND stage = ?`
	args := []any{dealID, string(stage)}
	if bookingID != "" {
		query += ` AND booking_id = ?`
		args = append(args, bookingID)
	}
	query += ` ORDER BY at_ns DESC, hash ASC`

	rows, err := ix.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return hashes, nil
}

// pathResolver is satisfied by stores that can name the file a snapshot
// occupies, so rebuilt rows keep their path column populated.
type pathResolver interface {
	Path(snap core.Snapshot) (string, error)
}

// Rebuild reconstructs the index from a full scan of the given stores.
// This is the only operation that discards rows, and it exists purely to
// recover a lost or stale cache from the authoritative files.
func (ix *Index) Rebuild(ctx context.Context, stores ...core.StageStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := ix.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	for _, store := range stores {
		snaps, diags, err := store.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("scan %s store: %w", store.Stage(), err)
		}
		for _, d := range diags {
			if ix.logger != nil {
				ix.logger.Warn("rebuild skipping corrupt snapshot", "path", d.Path, "reason", d.Reason)
			}
		}
		resolver, _ := store.(pathResolver)
		for _, snap := range snaps {
			var path string
			if resolver != nil {
				if p, err := resolver.Path(snap); err == nil {
					path = p
				}
			}
			_, err := tx.ExecContext(
				ctx,
				`INSERT OR IGNORE INTO snapshots (
				   deal_id, stage, booking_id, number, currency,
				   hash, parent_hash, at_ns, version, path
				 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				snap.DealID,
				string(snap.StageTag),
				snap.BookingID,
				snap.Number,
				snap.Currency,
				snap.Hash,
				snap.ParentHash,
				toNanos(snap.At),
				snap.Version,
				path,
			)
			if err != nil {
				return fmt.Errorf("reinsert snapshot %s: %w", snap.Hash, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

var _ core.SnapshotIndex = (*Index)(nil)
