package services

import (
	"context"
	"path/filepath"
	"testing"

	"gptracker/internal/core"
	"gptracker/internal/prices"
	"gptracker/internal/storage"
)

func TestRefreshOnceUpdatesGoalPrices(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	goals := []core.PurchaseGoal{
		{Name: "Bandos chestplate", ItemID: 11832, CurrentPrice: 16_000_000, Quantity: 1, Priority: 1},
		{Name: "Abyssal whip", ItemID: 4151, CurrentPrice: 1_700_000, Quantity: 1, Priority: 2},
		{Name: "Untradeable thing", ItemID: 0, CurrentPrice: 0, Quantity: 1, Priority: 9},
	}
	for _, g := range goals {
		if err := repo.UpsertGoal(ctx, g); err != nil {
			t.Fatalf("UpsertGoal(%q) error = %v", g.Name, err)
		}
	}

	source := prices.NewMemorySource()
	source.SetQuote(11832, prices.Quote{High: 16_200_000, Low: 15_800_000})
	// No quote for 4151; its goal keeps the stored price.

	refresher := NewPriceRefresher(repo, source, PriceRefresherConfig{})
	if err := refresher.RefreshOnce(ctx); err != nil {
		t.Fatalf("RefreshOnce() error = %v", err)
	}

	d, err := repo.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	byName := map[string]core.PurchaseGoal{}
	for _, g := range d.PurchaseGoals {
		byName[g.Name] = g
	}
	if got := byName["Bandos chestplate"].CurrentPrice; got != 16_000_000 {
		t.Errorf("Bandos price = %d, want the quote midpoint 16000000", got)
	}
	if got := byName["Abyssal whip"].CurrentPrice; got != 1_700_000 {
		t.Errorf("whip price = %d, want unchanged without a quote", got)
	}
}

func TestRefreshOnceNoGoals(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	refresher := NewPriceRefresher(repo, prices.NewMemorySource(), PriceRefresherConfig{})
	if err := refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce() with no goals error = %v", err)
	}
}

func TestPriceRefresherStartStop(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	refresher := NewPriceRefresher(repo, prices.NewMemorySource(), PriceRefresherConfig{})
	if err := refresher.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !refresher.IsRunning() {
		t.Error("refresher should report running after Start")
	}
	if err := refresher.Start(ctx); err == nil {
		t.Error("second Start() should fail while running")
	}
	if err := refresher.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if refresher.IsRunning() {
		t.Error("refresher should not report running after Stop")
	}
}
