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

const (
	// DefaultBatchSize is the fixed bank-item batch size.
	DefaultBatchSize = 75
	// fallbackTopN is how many of a failed batch's highest-value items get a
	// second chance as individual inserts.
	fallbackTopN = 15
	// interBatchDelay spaces out successful batches so the remote store is
	// not hammered.
	interBatchDelay = 200 * time.Millisecond
	// individualDelay spaces out the fallback single-record inserts.
	individualDelay = 100 * time.Millisecond
)

// UploadResult reports what the uploader actually confirmed versus what it
// was asked to push. Saved < Attempted comes with a human-readable warning.
type UploadResult struct {
	Attempted int
	Saved     int
	Warning   string
}

// Uploader pushes bank items to the remote store in fixed-size batches with
// bounded retries. Upload is best effort and at most once per record: a
// record that fails every attempt is simply absent, never rolled back or
// queued for later.
type Uploader struct {
	store     remote.BankItemInserter
	batchSize int
	policy    Policy
	collector *metrics.Collector
	sleep     sleepFunc
}

// NewUploader builds an uploader with the given batch size (0 means
// DefaultBatchSize). The collector is optional.
func NewUploader(store remote.BankItemInserter, batchSize int, policy Policy, collector *metrics.Collector) *Uploader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Uploader{
		store:     store,
		batchSize: batchSize,
		policy:    policy,
		collector: collector,
		sleep:     contextSleep,
	}
}

// Upload orders items by value descending and pushes them batch by batch,
// sequentially, never in parallel. A batch that exhausts its retries falls
// back to individual inserts of its highest-value items; individual failures
// are logged and absorbed. An auth failure aborts the whole upload.
func (u *Uploader) Upload(ctx context.Context, items []core.BankItem) (result UploadResult, err error) {
	result = UploadResult{Attempted: len(items)}
	if len(items) == 0 {
		return result, nil
	}

	// Aborted uploads still count toward the attempted/saved gap.
	defer func() {
		if u.collector != nil {
			u.collector.RecordUpload(result.Attempted, result.Saved)
		}
	}()

	ordered := core.Prioritize(items)
	batches := partition(ordered, u.batchSize)

	slog.InfoContext(ctx, "Starting chunked bank upload",
		"items", len(ordered),
		"batches", len(batches),
		"batch_size", u.batchSize)

	for i, batch := range batches {
		n, err := u.uploadBatch(ctx, i+1, batch)
		result.Saved += n
		if err != nil {
			if errors.Is(err, remote.ErrAuth) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Warning = warningFor(result)
				return result, err
			}
			// batch lost after retries and fallback; carry on with the rest
			slog.WarnContext(ctx, "Batch lost after retries",
				"batch", i+1,
				"items", len(batch),
				"recovered", n,
				"error", err)
			continue
		}
		if i < len(batches)-1 {
			if err := u.sleep(ctx, interBatchDelay); err != nil {
				result.Warning = warningFor(result)
				return result, err
			}
		}
	}

	result.Warning = warningFor(result)
	return result, nil
}

// uploadBatch inserts one batch under the retry policy, falling back to
// individual inserts of the top-value items when the batch is lost. Returns
// how many records were confirmed.
func (u *Uploader) uploadBatch(ctx context.Context, num int, batch []core.BankItem) (int, error) {
	var saved int
	err := withRetry(ctx, func() error {
		n, err := u.store.InsertBankItems(ctx, batch)
		if err != nil {
			return err
		}
		saved = n
		return nil
	}, u.policy, u.sleep)

	if err == nil {
		slog.DebugContext(ctx, "Batch uploaded", "batch", num, "items", saved)
		return saved, nil
	}
	if errors.Is(err, remote.ErrAuth) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, err
	}

	// Bias partial failure toward preserving the valuable records.
	top := core.TopByValue(batch, fallbackTopN)
	slog.WarnContext(ctx, "Batch failed all retries, falling back to individual inserts",
		"batch", num,
		"fallback_items", len(top),
		"error", err)

	var recovered int
	for _, item := range top {
		n, insertErr := u.store.InsertBankItems(ctx, []core.BankItem{item})
		if insertErr != nil {
			if errors.Is(insertErr, remote.ErrAuth) || errors.Is(insertErr, context.Canceled) {
				return recovered, insertErr
			}
			slog.WarnContext(ctx, "Individual insert failed",
				"item_name", item.Name,
				"value_gp", core.ItemValue(item),
				"error", insertErr)
		} else {
			recovered += n
		}
		if sleepErr := u.sleep(ctx, individualDelay); sleepErr != nil {
			return recovered, sleepErr
		}
	}

	return recovered, fmt.Errorf("batch %d: %w", num, err)
}

func partition(items []core.BankItem, size int) [][]core.BankItem {
	if len(items) == 0 {
		return nil
	}
	batches := make([][]core.BankItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

func warningFor(r UploadResult) string {
	if r.Saved >= r.Attempted || r.Attempted == 0 {
		return ""
	}
	pct := float64(r.Saved) / float64(r.Attempted) * 100
	return fmt.Sprintf("saved %d of %d bank items (%.0f%%); the rest were not persisted", r.Saved, r.Attempted, pct)
}
