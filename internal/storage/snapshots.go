package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gptracker/internal/core"
)

// MaxSnapshots is the retention limit. Creating a snapshot prunes the oldest
// ones past this count.
const MaxSnapshots = 20

// CreateSnapshot stores a point-in-time copy of the dataset under the next
// sequential version number.
func (r *SQLiteRepository) CreateSnapshot(ctx context.Context, d core.Dataset, kind core.SnapshotKind) (core.SnapshotMeta, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("marshal snapshot payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots").Scan(&version); err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("next snapshot version: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (version, kind, payload) VALUES (?, ?, ?)",
		version, string(kind), string(payload))
	if err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("snapshot id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY version DESC LIMIT ?
		)`, MaxSnapshots)
	if err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("prune snapshots: %w", err)
	}

	var createdAt string
	if err := tx.QueryRowContext(ctx, "SELECT created_at FROM snapshots WHERE id = ?", id).Scan(&createdAt); err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("read snapshot timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("commit snapshot: %w", err)
	}

	return core.SnapshotMeta{ID: id, Version: version, Kind: kind, CreatedAt: createdAt}, nil
}

// Snapshots lists stored snapshots, newest first.
func (r *SQLiteRepository) Snapshots(ctx context.Context) ([]core.SnapshotMeta, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, version, kind, created_at FROM snapshots ORDER BY version DESC")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.SnapshotMeta
	for rows.Next() {
		var m core.SnapshotMeta
		var kind string
		if err := rows.Scan(&m.ID, &m.Version, &kind, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		m.Kind = core.SnapshotKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// RestoreFromSnapshot returns the stored dataset verbatim. It does not touch
// the working tables; the caller decides whether to apply it.
func (r *SQLiteRepository) RestoreFromSnapshot(ctx context.Context, id int64) (core.Dataset, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM snapshots WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Dataset{}, core.ErrSnapshotNotFound
	}
	if err != nil {
		return core.Dataset{}, fmt.Errorf("read snapshot %d: %w", id, err)
	}

	var d core.Dataset
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return core.Dataset{}, fmt.Errorf("decode snapshot %d: %w", id, err)
	}
	return d, nil
}
