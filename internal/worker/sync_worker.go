// Package worker runs queued sync jobs against the remote store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gptracker/internal/amqp"
	"gptracker/internal/core"
	"gptracker/internal/storage"
	gpsync "gptracker/internal/sync"
)

// SyncWorker consumes sync jobs and pushes the referenced snapshot to the
// remote store through the save pipeline.
type SyncWorker struct {
	storage  *storage.SQLiteRepository
	pipeline *gpsync.Pipeline
}

func NewSyncWorker(storage *storage.SQLiteRepository, pipeline *gpsync.Pipeline) *SyncWorker {
	return &SyncWorker{
		storage:  storage,
		pipeline: pipeline,
	}
}

// HandleSyncJob processes one queued job. The dataset comes from the
// snapshot the job references, not the message body, so the newest local
// state at queue time is what gets pushed. A missing snapshot is dropped
// rather than requeued; it was pruned and cannot come back.
func (w *SyncWorker) HandleSyncJob(ctx context.Context, job *amqp.SyncJob) error {
	slog.InfoContext(ctx, "Processing sync job",
		"snapshot_id", job.SnapshotID,
		"bank_only", job.BankOnly,
		"force", job.Force)

	d, err := w.storage.RestoreFromSnapshot(ctx, job.SnapshotID)
	if err != nil {
		if errors.Is(err, core.ErrSnapshotNotFound) {
			slog.WarnContext(ctx, "Snapshot pruned before sync, dropping job",
				"snapshot_id", job.SnapshotID)
			return nil
		}
		return fmt.Errorf("load snapshot %d: %w", job.SnapshotID, err)
	}

	report, err := w.pipeline.Save(ctx, d, job.Scope(), job.SnapshotID)
	if err != nil {
		if errors.Is(err, gpsync.ErrEmptyOverwrite) {
			slog.WarnContext(ctx, "Dropping empty save without force",
				"snapshot_id", job.SnapshotID)
			return nil
		}
		return fmt.Errorf("save snapshot %d: %w", job.SnapshotID, err)
	}

	slog.InfoContext(ctx, "Sync job completed",
		"snapshot_id", job.SnapshotID,
		"characters", report.Counts.Characters,
		"methods", report.Counts.MoneyMethods,
		"goals", report.Counts.PurchaseGoals,
		"bank_items", report.Counts.BankItems,
		"resumed", report.Resumed)
	if report.Warning != "" {
		slog.WarnContext(ctx, "Sync job finished with partial save",
			"snapshot_id", job.SnapshotID,
			"warning", report.Warning)
	}

	return nil
}

// StartupSyncCheck finishes any save a previous run left mid-saga. The
// persisted cursor records the last completed step together with the
// snapshot and scope that save was pushing; the resume replays exactly that
// save, never a different snapshot or a widened scope.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	marker, err := w.storage.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("read sync cursor: %w", err)
	}
	if !marker.InFlight() {
		slog.InfoContext(ctx, "No interrupted save found on startup")
		return nil
	}

	d, err := w.storage.RestoreFromSnapshot(ctx, marker.SnapshotID)
	if err != nil {
		if errors.Is(err, core.ErrSnapshotNotFound) {
			slog.WarnContext(ctx, "Interrupted save has no snapshot to resume from, clearing cursor",
				"completed_through", marker.Step,
				"snapshot_id", marker.SnapshotID)
			return w.storage.ClearCursor(ctx)
		}
		return fmt.Errorf("load snapshot %d: %w", marker.SnapshotID, err)
	}

	slog.InfoContext(ctx, "Resuming interrupted save",
		"completed_through", marker.Step,
		"snapshot_id", marker.SnapshotID,
		"bank_only", marker.Scope.BankOnly)

	report, err := w.pipeline.Save(ctx, d, marker.Scope, marker.SnapshotID)
	if err != nil {
		return fmt.Errorf("resume save: %w", err)
	}

	slog.InfoContext(ctx, "Interrupted save finished",
		"bank_items", report.Counts.BankItems,
		"warning", report.Warning)

	return nil
}
