package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gptracker/internal/core"
	"gptracker/internal/metrics"
	"gptracker/internal/remote"
)

// recordingInserter captures every InsertBankItems call and can be told to
// fail batches whose leading item matches failFirst, and to fail all
// single-item inserts.
type recordingInserter struct {
	batches     [][]core.BankItem
	singles     []core.BankItem
	failFirst   string
	failSingles bool
	err         error
}

func (r *recordingInserter) InsertBankItems(ctx context.Context, bs []core.BankItem) (int, error) {
	if len(bs) == 1 {
		r.singles = append(r.singles, bs[0])
		if r.failSingles {
			return 0, r.errOrDefault()
		}
		return 1, nil
	}
	r.batches = append(r.batches, bs)
	if r.failFirst != "" && bs[0].Name == r.failFirst {
		return 0, r.errOrDefault()
	}
	return len(bs), nil
}

func (r *recordingInserter) errOrDefault() error {
	if r.err != nil {
		return r.err
	}
	return errors.New("insert failed")
}

// descendingBank builds n items whose value strictly decreases with index,
// so their prioritized order equals their construction order.
func descendingBank(n int) []core.BankItem {
	items := make([]core.BankItem, n)
	for i := range items {
		items[i] = core.BankItem{
			Character:      "Alice",
			Name:           fmt.Sprintf("item-%04d", i),
			Quantity:       1,
			EstimatedPrice: int64(10*n - 10*i),
			Category:       core.CategoryOther,
		}
	}
	return items
}

func newTestUploader(store remote.BankItemInserter, batchSize int) *Uploader {
	u := NewUploader(store, batchSize, DefaultPolicy(), nil)
	u.sleep = noSleep
	return u
}

func TestUploadAllBatchesSucceed(t *testing.T) {
	store := &recordingInserter{}
	u := newTestUploader(store, 75)

	result, err := u.Upload(context.Background(), descendingBank(300))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Saved != 300 || result.Attempted != 300 {
		t.Errorf("saved %d of %d, want 300 of 300", result.Saved, result.Attempted)
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning: %q", result.Warning)
	}
	if len(store.batches) != 4 {
		t.Errorf("batches = %d, want 4", len(store.batches))
	}
	if store.batches[0][0].Name != "item-0000" {
		t.Errorf("first batch starts with %q, want the highest-value item", store.batches[0][0].Name)
	}
}

func TestUploadEmptyInput(t *testing.T) {
	store := &recordingInserter{}
	u := newTestUploader(store, 75)

	result, err := u.Upload(context.Background(), nil)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Saved != 0 || result.Warning != "" {
		t.Errorf("got saved=%d warning=%q, want zero-value result", result.Saved, result.Warning)
	}
	if len(store.batches) != 0 {
		t.Errorf("no inserts expected for empty input, got %d", len(store.batches))
	}
}

// A batch that fails every retry and every individual fallback must not sink
// the upload: the remaining batches still go out, the confirmed count drops
// below the attempted count, and the result carries a warning. The fallback
// attempts the top-value items of the lost batch one at a time.
func TestUploadThirdBatchTotalFailure(t *testing.T) {
	items := descendingBank(1200)
	// With batch size 75 the third batch covers indexes 150..224.
	store := &recordingInserter{failFirst: "item-0150", failSingles: true}
	u := newTestUploader(store, 75)

	result, err := u.Upload(context.Background(), items)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if result.Saved >= 1200 {
		t.Errorf("Saved = %d, want < 1200", result.Saved)
	}
	if result.Saved != 1125 {
		t.Errorf("Saved = %d, want 1125 (1200 minus the lost batch)", result.Saved)
	}
	if result.Warning == "" {
		t.Error("expected a non-empty warning on partial save")
	}
	if !strings.Contains(result.Warning, "1125 of 1200") {
		t.Errorf("warning %q does not report the partial count", result.Warning)
	}

	if len(store.singles) != fallbackTopN {
		t.Fatalf("individual fallback attempts = %d, want %d", len(store.singles), fallbackTopN)
	}
	for i, item := range store.singles {
		want := fmt.Sprintf("item-%04d", 150+i)
		if item.Name != want {
			t.Errorf("fallback[%d] = %q, want %q (highest value first)", i, item.Name, want)
		}
	}

	// All sixteen batches were attempted despite the loss.
	firsts := map[string]bool{}
	for _, b := range store.batches {
		firsts[b[0].Name] = true
	}
	if !firsts["item-1125"] {
		t.Error("final batch was never attempted after the failed one")
	}
}

func TestUploadFallbackRecoversTopItems(t *testing.T) {
	store := &recordingInserter{failFirst: "item-0000"}
	u := newTestUploader(store, 75)

	result, err := u.Upload(context.Background(), descendingBank(150))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	// Batch one lost, its top 15 recovered individually, batch two intact.
	if result.Saved != 75+fallbackTopN {
		t.Errorf("Saved = %d, want %d", result.Saved, 75+fallbackTopN)
	}
	if result.Warning == "" {
		t.Error("expected warning when only part of the batch was recovered")
	}
}

func TestUploadAbortsOnAuthFailure(t *testing.T) {
	store := &recordingInserter{failFirst: "item-0000", err: remote.ErrAuth}
	u := newTestUploader(store, 75)

	_, err := u.Upload(context.Background(), descendingBank(300))
	if !errors.Is(err, remote.ErrAuth) {
		t.Fatalf("Upload() error = %v, want ErrAuth", err)
	}
	if len(store.batches) != 1 {
		t.Errorf("batches attempted = %d, want 1 (no retry, no continuation)", len(store.batches))
	}
	if len(store.singles) != 0 {
		t.Errorf("no individual fallback expected on auth failure, got %d", len(store.singles))
	}
}

// An aborted upload still shows up in the scrape: the attempted/saved gap
// is the signal an operator has for a dead credential.
func TestUploadRecordsMetricsOnAuthAbort(t *testing.T) {
	collector := metrics.NewCollector()
	store := &recordingInserter{failFirst: "item-0000", err: remote.ErrAuth}
	u := NewUploader(store, 75, DefaultPolicy(), collector)
	u.sleep = noSleep

	_, err := u.Upload(context.Background(), descendingBank(300))
	if !errors.Is(err, remote.ErrAuth) {
		t.Fatalf("Upload() error = %v, want ErrAuth", err)
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "gptracker_upload_records_attempted_total 300") {
		t.Error("attempted counter not recorded for an aborted upload")
	}
	if !strings.Contains(body, "gptracker_upload_records_saved_total 0") {
		t.Error("saved counter not recorded for an aborted upload")
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, size   int
		batches   int
		lastBatch int
	}{
		{0, 75, 0, 0},
		{1, 75, 1, 1},
		{75, 75, 1, 75},
		{76, 75, 2, 1},
		{1200, 75, 16, 75},
	}
	for _, tt := range tests {
		got := partition(descendingBank(tt.n), tt.size)
		if len(got) != tt.batches {
			t.Errorf("partition(%d, %d): %d batches, want %d", tt.n, tt.size, len(got), tt.batches)
			continue
		}
		if tt.batches > 0 && len(got[len(got)-1]) != tt.lastBatch {
			t.Errorf("partition(%d, %d): last batch %d items, want %d", tt.n, tt.size, len(got[len(got)-1]), tt.lastBatch)
		}
	}
}
