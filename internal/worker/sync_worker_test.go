package worker

import (
	"context"
	"path/filepath"
	"testing"

	"gptracker/internal/amqp"
	"gptracker/internal/core"
	"gptracker/internal/remote"
	"gptracker/internal/remote/memory"
	"gptracker/internal/storage"
	gpsync "gptracker/internal/sync"
)

func newTestWorker(t *testing.T, chunkThreshold int) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := memory.New()
	uploader := gpsync.NewUploader(store, 75, gpsync.DefaultPolicy(), nil)
	pipeline := gpsync.NewPipeline(store, repo, uploader, gpsync.DefaultPolicy(), chunkThreshold, nil)

	return NewSyncWorker(repo, pipeline), repo, store
}

func workerDataset() core.Dataset {
	return core.Dataset{
		Characters:  []core.Character{{Name: "Alice", AccountType: core.AccountMain, CombatLevel: 100, TotalLevel: 1500}},
		BankItems:   []core.BankItem{{Character: "Alice", Name: "Coins", Quantity: 1_000_000}},
		HoursPerDay: 2,
	}
}

func TestHandleSyncJobPushesSnapshot(t *testing.T) {
	w, repo, store := newTestWorker(t, 500)
	ctx := context.Background()

	meta, err := repo.CreateSnapshot(ctx, workerDataset(), core.SnapshotChunked)
	if err != nil {
		t.Fatalf("CreateSnapshot() error = %v", err)
	}

	job := amqp.NewSyncJob(meta.ID, remote.SaveScope{})
	if err := w.HandleSyncJob(ctx, job); err != nil {
		t.Fatalf("HandleSyncJob() error = %v", err)
	}

	d, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(d.Characters) != 1 || d.Characters[0].Name != "Alice" {
		t.Errorf("remote characters = %+v", d.Characters)
	}
	if len(d.BankItems) != 1 {
		t.Errorf("remote bank items = %d, want 1", len(d.BankItems))
	}
}

func TestHandleSyncJobMissingSnapshotIsDropped(t *testing.T) {
	w, _, store := newTestWorker(t, 500)

	job := amqp.NewSyncJob(9999, remote.SaveScope{})
	if err := w.HandleSyncJob(context.Background(), job); err != nil {
		t.Fatalf("HandleSyncJob() error = %v, want nil for a pruned snapshot", err)
	}

	d, _ := store.Load(context.Background())
	if !d.IsEmpty() {
		t.Error("nothing should have been written for a missing snapshot")
	}
}

func TestHandleSyncJobEmptyWithoutForceIsDropped(t *testing.T) {
	w, repo, store := newTestWorker(t, 500)
	ctx := context.Background()

	store.Seed(workerDataset())
	meta, err := repo.CreateSnapshot(ctx, core.Dataset{}, core.SnapshotAuto)
	if err != nil {
		t.Fatalf("CreateSnapshot() error = %v", err)
	}

	job := amqp.NewSyncJob(meta.ID, remote.SaveScope{})
	if err := w.HandleSyncJob(ctx, job); err != nil {
		t.Fatalf("HandleSyncJob() error = %v, want the empty save dropped without requeue", err)
	}

	d, _ := store.Load(ctx)
	if d.IsEmpty() {
		t.Error("empty save without force should not have wiped the remote store")
	}
}

func TestStartupSyncCheckResumesInterruptedSave(t *testing.T) {
	// Threshold of 1 forces the two-record dataset through the chunked saga.
	w, repo, store := newTestWorker(t, 1)
	ctx := context.Background()

	meta, err := repo.CreateSnapshot(ctx, workerDataset(), core.SnapshotChunked)
	if err != nil {
		t.Fatalf("CreateSnapshot() error = %v", err)
	}
	// Simulate a crash mid-saga: collections written, bank step pending.
	marker := gpsync.SaveMarker{Step: gpsync.StepSettings, SnapshotID: meta.ID}
	if err := repo.SetCursor(ctx, marker); err != nil {
		t.Fatalf("SetCursor() error = %v", err)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}

	got, err := repo.Cursor(ctx)
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	if got.InFlight() {
		t.Errorf("cursor = %+v after resume, want cleared", got)
	}

	d, _ := store.Load(ctx)
	if len(d.BankItems) != 1 {
		t.Errorf("remote bank items = %d, want the pending bank step completed", len(d.BankItems))
	}
	if len(d.Characters) != 0 {
		t.Errorf("remote characters = %d, want the completed steps skipped on resume", len(d.Characters))
	}
}

func TestStartupSyncCheckReplaysRecordedScope(t *testing.T) {
	w, repo, store := newTestWorker(t, 1)
	ctx := context.Background()

	// The remote store already holds another character's data; a resumed
	// bank-only save must not widen into a full replace.
	store.Seed(core.Dataset{
		Characters: []core.Character{{Name: "Bob", AccountType: core.AccountMain, CombatLevel: 80, TotalLevel: 1200}},
	})

	meta, err := repo.CreateSnapshot(ctx, workerDataset(), core.SnapshotChunked)
	if err != nil {
		t.Fatalf("CreateSnapshot() error = %v", err)
	}
	marker := gpsync.SaveMarker{
		Step:       gpsync.StepClear,
		SnapshotID: meta.ID,
		Scope:      remote.SaveScope{BankOnly: true, Characters: []string{"Alice"}},
	}
	if err := repo.SetCursor(ctx, marker); err != nil {
		t.Fatalf("SetCursor() error = %v", err)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}

	d, _ := store.Load(ctx)
	if len(d.BankItems) != 1 {
		t.Errorf("remote bank items = %d, want 1", len(d.BankItems))
	}
	if len(d.Characters) != 1 || d.Characters[0].Name != "Bob" {
		t.Errorf("remote characters = %+v, want Bob untouched by the bank-only resume", d.Characters)
	}
}

func TestStartupSyncCheckNoCursor(t *testing.T) {
	w, _, store := newTestWorker(t, 500)
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	d, _ := store.Load(context.Background())
	if !d.IsEmpty() {
		t.Error("nothing should be pushed without an interrupted save")
	}
}

func TestStartupSyncCheckCursorWithoutSnapshot(t *testing.T) {
	w, repo, _ := newTestWorker(t, 500)
	ctx := context.Background()

	marker := gpsync.SaveMarker{Step: gpsync.StepClear, SnapshotID: 424242}
	if err := repo.SetCursor(ctx, marker); err != nil {
		t.Fatalf("SetCursor() error = %v", err)
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	got, _ := repo.Cursor(ctx)
	if got.InFlight() {
		t.Errorf("cursor = %+v, want cleared when the snapshot is gone", got)
	}
}
