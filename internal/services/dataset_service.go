// Package services orchestrates the tracker's use cases across local
// storage, the sync queue and the remote store.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gptracker/internal/amqp"
	"gptracker/internal/backup"
	"gptracker/internal/core"
	"gptracker/internal/metrics"
	"gptracker/internal/prices"
	"gptracker/internal/remote"
	"gptracker/internal/storage"
	gpsync "gptracker/internal/sync"
)

// DatasetService owns the working dataset. Writes land in SQLite first;
// pushing to the remote store is queued over AMQP when a broker is
// configured, otherwise it runs inline.
type DatasetService struct {
	storage   *storage.SQLiteRepository
	queue     *amqp.Client
	pipeline  *gpsync.Pipeline
	collector *metrics.Collector
	stats     prices.StatsSource
}

func NewDatasetService(storage *storage.SQLiteRepository, queue *amqp.Client, pipeline *gpsync.Pipeline, collector *metrics.Collector) *DatasetService {
	return &DatasetService{
		storage:   storage,
		queue:     queue,
		pipeline:  pipeline,
		collector: collector,
	}
}

// WithStatsSource enables hiscore-backed refreshes of character levels.
func (s *DatasetService) WithStatsSource(source prices.StatsSource) *DatasetService {
	s.stats = source
	return s
}

func (s *DatasetService) Dataset(ctx context.Context) (core.Dataset, error) {
	return s.storage.LoadDataset(ctx)
}

// Overview recomputes the aggregated dashboard numbers from whatever is
// currently stored, regardless of sync state.
func (s *DatasetService) Overview(ctx context.Context) (core.Overview, error) {
	d, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return core.Overview{}, fmt.Errorf("load dataset: %w", err)
	}
	return core.Summarize(d), nil
}

func (s *DatasetService) UpsertCharacter(ctx context.Context, c core.Character) error {
	return s.storage.UpsertCharacter(ctx, c)
}

func (s *DatasetService) DeleteCharacter(ctx context.Context, name string) error {
	return s.storage.DeleteCharacter(ctx, name)
}

// ErrStatsDisabled is returned when no stats source is configured.
var ErrStatsDisabled = errors.New("stats lookups are not configured")

// RefreshCharacterStats pulls a character's levels from the hiscores feed
// and stores them. The character must already exist locally.
func (s *DatasetService) RefreshCharacterStats(ctx context.Context, name string) (core.Character, error) {
	if s.stats == nil {
		return core.Character{}, ErrStatsDisabled
	}

	d, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return core.Character{}, fmt.Errorf("load dataset: %w", err)
	}
	var found *core.Character
	for i := range d.Characters {
		if d.Characters[i].Name == name {
			found = &d.Characters[i]
			break
		}
	}
	if found == nil {
		return core.Character{}, fmt.Errorf("refresh stats for %q: %w", name, prices.ErrCharacterNotFound)
	}

	stats, err := s.stats.Lookup(ctx, name)
	if err != nil {
		return core.Character{}, fmt.Errorf("lookup stats for %q: %w", name, err)
	}

	found.CombatLevel = stats.CombatLevel
	found.TotalLevel = stats.TotalLevel
	found.AccountType = stats.AccountType
	if err := s.storage.UpsertCharacter(ctx, *found); err != nil {
		return core.Character{}, fmt.Errorf("store refreshed stats: %w", err)
	}

	slog.InfoContext(ctx, "Character stats refreshed",
		"character", name,
		"combat_level", stats.CombatLevel,
		"total_level", stats.TotalLevel)
	return *found, nil
}

func (s *DatasetService) UpsertMethod(ctx context.Context, m core.MoneyMethod) error {
	return s.storage.UpsertMethod(ctx, m)
}

func (s *DatasetService) DeleteMethod(ctx context.Context, name string) error {
	return s.storage.DeleteMethod(ctx, name)
}

// ActivateMethod marks one method active for its character and deactivates
// the rest assigned to the same character.
func (s *DatasetService) ActivateMethod(ctx context.Context, name string) error {
	return s.storage.SetActiveMethod(ctx, name)
}

func (s *DatasetService) UpsertGoal(ctx context.Context, g core.PurchaseGoal) error {
	return s.storage.UpsertGoal(ctx, g)
}

func (s *DatasetService) DeleteGoal(ctx context.Context, name string) error {
	return s.storage.DeleteGoal(ctx, name)
}

func (s *DatasetService) UpsertBankItem(ctx context.Context, b core.BankItem) error {
	return s.storage.UpsertBankItem(ctx, b)
}

func (s *DatasetService) DeleteBankItem(ctx context.Context, character, name string) error {
	return s.storage.DeleteBankItem(ctx, character, name)
}

func (s *DatasetService) BankItems(ctx context.Context, character string) ([]core.BankItem, error) {
	return s.storage.BankItems(ctx, character)
}

func (s *DatasetService) SetHoursPerDay(ctx context.Context, hours float64) error {
	return s.storage.SetHoursPerDay(ctx, hours)
}

// SyncStatus reports whether a queued save stands between local and remote
// state.
type SyncStatus struct {
	Queued     bool               `json:"queued"`
	SnapshotID int64              `json:"snapshotId,omitempty"`
	Report     *gpsync.SaveReport `json:"report,omitempty"`
}

// RequestSave snapshots the current dataset and pushes it to the remote
// store. With a broker the snapshot id is queued and the worker does the
// push; without one the save runs inline. The snapshot doubles as the
// pre-save restore point.
func (s *DatasetService) RequestSave(ctx context.Context, scope remote.SaveScope) (SyncStatus, error) {
	d, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("load dataset: %w", err)
	}

	kind := core.SnapshotAuto
	if d.RecordCount() > 0 && s.queue != nil {
		kind = core.SnapshotChunked
	}
	meta, err := s.storage.CreateSnapshot(ctx, d, kind)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("snapshot before save: %w", err)
	}
	if s.collector != nil {
		s.collector.RecordSnapshot()
	}

	if s.queue != nil {
		job := amqp.NewSyncJob(meta.ID, scope)
		if err := s.queue.PublishSyncJob(ctx, job); err != nil {
			slog.ErrorContext(ctx, "Failed to queue sync job, saving inline",
				"snapshot_id", meta.ID, "error", err)
		} else {
			return SyncStatus{Queued: true, SnapshotID: meta.ID}, nil
		}
	}

	report, err := s.pipeline.Save(ctx, d, scope, meta.ID)
	if err != nil {
		return SyncStatus{SnapshotID: meta.ID}, err
	}
	return SyncStatus{SnapshotID: meta.ID, Report: &report}, nil
}

// LoadRemote pulls the remote dataset and replaces the local copy. The local
// state is snapshotted first so a bad pull can be undone.
func (s *DatasetService) LoadRemote(ctx context.Context) (core.Dataset, error) {
	local, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("load local dataset: %w", err)
	}
	if !local.IsEmpty() {
		if _, err := s.storage.CreateSnapshot(ctx, local, core.SnapshotAuto); err != nil {
			return core.Dataset{}, fmt.Errorf("snapshot before load: %w", err)
		}
	}

	d, err := s.pipeline.Load(ctx)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("load remote dataset: %w", err)
	}
	d.Sanitize()
	if err := s.storage.SaveDataset(ctx, d); err != nil {
		return core.Dataset{}, fmt.Errorf("store loaded dataset: %w", err)
	}
	return d, nil
}

// Export writes the current dataset as a backup document.
func (s *DatasetService) Export(ctx context.Context, w io.Writer) error {
	d, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	return backup.Export(w, d)
}

// Import replaces the working dataset with a backup document, snapshotting
// the current state first.
func (s *DatasetService) Import(ctx context.Context, r io.Reader) (core.Dataset, error) {
	d, err := backup.Import(r)
	if err != nil {
		return core.Dataset{}, err
	}

	current, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("load current dataset: %w", err)
	}
	if !current.IsEmpty() {
		if _, err := s.storage.CreateSnapshot(ctx, current, core.SnapshotManual); err != nil {
			return core.Dataset{}, fmt.Errorf("snapshot before import: %w", err)
		}
	}

	if err := s.storage.SaveDataset(ctx, d); err != nil {
		return core.Dataset{}, fmt.Errorf("store imported dataset: %w", err)
	}
	return d, nil
}

// ImportBank replaces one character's bank rows from an external dump.
func (s *DatasetService) ImportBank(ctx context.Context, character string, r io.Reader) (int, error) {
	if character == "" {
		return 0, core.ErrEmptyCharacter
	}
	items, err := backup.ParseBankDump(r, character)
	if err != nil {
		return 0, err
	}
	if err := s.storage.ReplaceBank(ctx, character, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *DatasetService) Snapshots(ctx context.Context) ([]core.SnapshotMeta, error) {
	return s.storage.Snapshots(ctx)
}

// CreateSnapshot takes a manual snapshot of the current dataset.
func (s *DatasetService) CreateSnapshot(ctx context.Context) (core.SnapshotMeta, error) {
	d, err := s.storage.LoadDataset(ctx)
	if err != nil {
		return core.SnapshotMeta{}, fmt.Errorf("load dataset: %w", err)
	}
	meta, err := s.storage.CreateSnapshot(ctx, d, core.SnapshotManual)
	if err != nil {
		return core.SnapshotMeta{}, err
	}
	if s.collector != nil {
		s.collector.RecordSnapshot()
	}
	return meta, nil
}

// RestoreSnapshot replaces the working dataset with a stored snapshot.
func (s *DatasetService) RestoreSnapshot(ctx context.Context, id int64) (core.Dataset, error) {
	d, err := s.storage.RestoreFromSnapshot(ctx, id)
	if err != nil {
		return core.Dataset{}, err
	}
	if err := s.storage.SaveDataset(ctx, d); err != nil {
		return core.Dataset{}, fmt.Errorf("apply snapshot %d: %w", id, err)
	}
	return d, nil
}

func (s *DatasetService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close dataset service: %v", errs)
	}
	return nil
}
