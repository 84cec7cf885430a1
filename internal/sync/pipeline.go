package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gptracker/internal/core"
	"gptracker/internal/metrics"
	"gptracker/internal/remote"
)

// Saga steps, in order. The cursor stores the last completed step so a
// resumed save skips work already done instead of redoing a full replace.
const (
	StepClear      = "clear"
	StepCharacters = "characters"
	StepMethods    = "methods"
	StepGoals      = "goals"
	StepSettings   = "settings"
	StepBank       = "bank"
)

var stepOrder = []string{StepClear, StepCharacters, StepMethods, StepGoals, StepSettings, StepBank}

// ErrEmptyOverwrite is returned when a save would replace non-empty remote
// data with an empty local dataset and force was not set.
var ErrEmptyOverwrite = errors.New("refusing to overwrite remote data with an empty dataset")

// SaveMarker identifies an in-flight save: the last completed step plus the
// snapshot and scope that save was pushing. A resumed save must carry the
// same identity; a marker left behind by a different save is stale and gets
// discarded rather than skipping steps of the new one.
type SaveMarker struct {
	Step       string
	SnapshotID int64
	Scope      remote.SaveScope
}

// InFlight reports whether the marker records an interrupted save.
func (m SaveMarker) InFlight() bool { return m.Step != "" }

// SameSave reports whether a save for the given snapshot and scope is the
// one the marker was recording. Force is ignored; it only gates the
// empty-overwrite check and does not change which steps run.
func (m SaveMarker) SameSave(snapshotID int64, scope remote.SaveScope) bool {
	if m.SnapshotID != snapshotID || m.Scope.BankOnly != scope.BankOnly {
		return false
	}
	if len(m.Scope.Characters) != len(scope.Characters) {
		return false
	}
	for i, name := range m.Scope.Characters {
		if scope.Characters[i] != name {
			return false
		}
	}
	return true
}

// CursorStore persists the saga cursor between runs.
type CursorStore interface {
	Cursor(ctx context.Context) (SaveMarker, error)
	SetCursor(ctx context.Context, marker SaveMarker) error
	ClearCursor(ctx context.Context) error
}

// SaveReport is what a save hands back to the caller: confirmed counts and a
// non-fatal warning when confirmed < attempted.
type SaveReport struct {
	Counts  remote.SaveCounts `json:"saved"`
	Warning string            `json:"warning,omitempty"`
	Resumed bool              `json:"resumed,omitempty"`
}

// Pipeline is the single authoritative save/load path. There is exactly one;
// validation strictness does not vary by entry point.
type Pipeline struct {
	store          remote.Store
	cursor         CursorStore
	uploader       *Uploader
	policy         Policy
	chunkThreshold int
	collector      *metrics.Collector
	sleep          sleepFunc
}

func NewPipeline(store remote.Store, cursor CursorStore, uploader *Uploader, policy Policy, chunkThreshold int, collector *metrics.Collector) *Pipeline {
	if chunkThreshold <= 0 {
		chunkThreshold = 500
	}
	return &Pipeline{
		store:          store,
		cursor:         cursor,
		uploader:       uploader,
		policy:         policy,
		chunkThreshold: chunkThreshold,
		collector:      collector,
		sleep:          contextSleep,
	}
}

// Load fetches the full remote dataset.
func (p *Pipeline) Load(ctx context.Context) (core.Dataset, error) {
	return p.store.Load(ctx)
}

// Save replaces the remote scope with the dataset. Small datasets go out as
// a single unbatched write; large ones run the chunked saga. Either way the
// steps are sequential and non-transactional: a crash mid-sequence leaves
// the store partially written, and the persisted cursor lets a retry of the
// same save, identified by snapshotID and scope, pick up where this one
// stopped.
func (p *Pipeline) Save(ctx context.Context, d core.Dataset, scope remote.SaveScope, snapshotID int64) (SaveReport, error) {
	start := time.Now()
	report, err := p.save(ctx, d, scope, snapshotID)
	if p.collector != nil {
		p.collector.RecordSave(time.Since(start), err == nil)
	}
	return report, err
}

func (p *Pipeline) save(ctx context.Context, d core.Dataset, scope remote.SaveScope, snapshotID int64) (SaveReport, error) {
	d.Sanitize()

	if d.IsEmpty() && !scope.Force {
		existing, err := p.store.Load(ctx)
		if err != nil {
			return SaveReport{}, fmt.Errorf("check remote before empty save: %w", err)
		}
		if !existing.IsEmpty() {
			return SaveReport{}, ErrEmptyOverwrite
		}
	}

	if d.RecordCount() <= p.chunkThreshold {
		return p.savePlain(ctx, d, scope)
	}
	return p.saveChunked(ctx, d, scope, snapshotID)
}

// savePlain is the single-write path for small datasets.
func (p *Pipeline) savePlain(ctx context.Context, d core.Dataset, scope remote.SaveScope) (SaveReport, error) {
	var counts remote.SaveCounts
	err := withRetry(ctx, func() error {
		var opErr error
		counts, opErr = p.store.Save(ctx, d, scope)
		return opErr
	}, p.policy, p.sleep)
	if err != nil {
		return SaveReport{}, err
	}
	if clearErr := p.cursor.ClearCursor(ctx); clearErr != nil {
		slog.WarnContext(ctx, "Failed to clear saga cursor", "error", clearErr)
	}
	return SaveReport{Counts: counts, Warning: plainWarning(d, counts, scope)}, nil
}

// saveChunked runs the saga. Each completed step advances the persisted
// cursor; on entry, steps at or before the stored cursor are skipped, but
// only when the cursor belongs to this very save. A marker left behind by a
// different snapshot or scope is cleared so the new save starts from the
// clear step.
func (p *Pipeline) saveChunked(ctx context.Context, d core.Dataset, scope remote.SaveScope, snapshotID int64) (SaveReport, error) {
	marker, err := p.cursor.Cursor(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read saga cursor, starting from scratch", "error", err)
		marker = SaveMarker{}
	}
	if marker.InFlight() && !marker.SameSave(snapshotID, scope) {
		slog.WarnContext(ctx, "Discarding saga cursor from a different save",
			"cursor_snapshot_id", marker.SnapshotID,
			"snapshot_id", snapshotID)
		if clearErr := p.cursor.ClearCursor(ctx); clearErr != nil {
			slog.WarnContext(ctx, "Failed to clear stale saga cursor", "error", clearErr)
		}
		marker = SaveMarker{}
	}
	report := SaveReport{Resumed: marker.InFlight()}

	skip := map[string]bool{}
	if marker.InFlight() {
		for _, step := range stepOrder {
			skip[step] = true
			if step == marker.Step {
				break
			}
		}
		slog.InfoContext(ctx, "Resuming chunked save",
			"completed_through", marker.Step,
			"snapshot_id", snapshotID)
	}

	runStep := func(step string, op func() error) error {
		if skip[step] {
			return nil
		}
		if err := withRetry(ctx, op, p.policy, p.sleep); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
		m := SaveMarker{Step: step, SnapshotID: snapshotID, Scope: scope}
		if err := p.cursor.SetCursor(ctx, m); err != nil {
			slog.WarnContext(ctx, "Failed to persist saga cursor", "step", step, "error", err)
		}
		return nil
	}

	if err := runStep(StepClear, func() error {
		return p.store.Clear(ctx, scope)
	}); err != nil {
		return report, err
	}

	if !scope.BankOnly {
		if err := runStep(StepCharacters, func() error {
			n, opErr := p.store.InsertCharacters(ctx, d.Characters)
			report.Counts.Characters = n
			return opErr
		}); err != nil {
			return report, err
		}
		if err := runStep(StepMethods, func() error {
			n, opErr := p.store.InsertMethods(ctx, d.MoneyMethods)
			report.Counts.MoneyMethods = n
			return opErr
		}); err != nil {
			return report, err
		}
		if err := runStep(StepGoals, func() error {
			n, opErr := p.store.InsertGoals(ctx, d.PurchaseGoals)
			report.Counts.PurchaseGoals = n
			return opErr
		}); err != nil {
			return report, err
		}
		if err := runStep(StepSettings, func() error {
			return p.store.PutSettings(ctx, d.HoursPerDay)
		}); err != nil {
			return report, err
		}
	}

	if !skip[StepBank] {
		result, upErr := p.uploader.Upload(ctx, d.BankItems)
		report.Counts.BankItems = result.Saved
		report.Warning = result.Warning
		if upErr != nil && (errors.Is(upErr, remote.ErrAuth) || errors.Is(upErr, context.Canceled) || errors.Is(upErr, context.DeadlineExceeded)) {
			return report, upErr
		}
	}

	if err := p.cursor.ClearCursor(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to clear saga cursor after save", "error", err)
	}

	slog.InfoContext(ctx, "Chunked save finished",
		"characters", report.Counts.Characters,
		"methods", report.Counts.MoneyMethods,
		"goals", report.Counts.PurchaseGoals,
		"bank_items", report.Counts.BankItems,
		"warning", report.Warning != "")

	return report, nil
}

func plainWarning(d core.Dataset, counts remote.SaveCounts, scope remote.SaveScope) string {
	attempted := len(d.BankItems)
	if !scope.BankOnly {
		attempted = d.RecordCount()
	}
	if counts.Total() >= attempted {
		return ""
	}
	pct := float64(counts.Total()) / float64(attempted) * 100
	return fmt.Sprintf("saved %d of %d records (%.0f%%)", counts.Total(), attempted, pct)
}
