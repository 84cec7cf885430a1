package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gptracker/internal/prices"
	"gptracker/internal/storage"
)

// PriceRefresherConfig holds configuration for the periodic price refresh.
type PriceRefresherConfig struct {
	// Interval is how often goal prices are refreshed (default: 6h)
	Interval time.Duration
}

func DefaultPriceRefresherConfig() PriceRefresherConfig {
	return PriceRefresherConfig{Interval: 6 * time.Hour}
}

// PriceRefresher keeps purchase-goal prices in step with the market feed.
type PriceRefresher struct {
	storage *storage.SQLiteRepository
	source  prices.PriceSource
	config  PriceRefresherConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPriceRefresher(storage *storage.SQLiteRepository, source prices.PriceSource, config PriceRefresherConfig) *PriceRefresher {
	if config.Interval <= 0 {
		config.Interval = DefaultPriceRefresherConfig().Interval
	}
	return &PriceRefresher{
		storage: storage,
		source:  source,
		config:  config,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (p *PriceRefresher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("price refresher is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Price refresher started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (p *PriceRefresher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Price refresher stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Price refresher stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *PriceRefresher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PriceRefresher) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Refresh immediately on startup.
	if err := p.RefreshOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial price refresh failed", "error", err)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RefreshOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Price refresh failed", "error", err)
			}
		}
	}
}

// RefreshOnce fetches current quotes for every item referenced by a goal and
// writes the midpoint back as the tracked price.
func (p *PriceRefresher) RefreshOnce(ctx context.Context) error {
	ids, err := p.storage.GoalItemIDs(ctx)
	if err != nil {
		return fmt.Errorf("list goal item ids: %w", err)
	}
	if len(ids) == 0 {
		slog.DebugContext(ctx, "No goal items to refresh")
		return nil
	}

	quotes, err := p.source.Quotes(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch quotes: %w", err)
	}

	updated := 0
	for id, q := range quotes {
		n, err := p.storage.UpdateGoalPrice(ctx, id, q.Mid())
		if err != nil {
			slog.ErrorContext(ctx, "Failed to update goal price",
				"item_id", id, "error", err)
			continue
		}
		updated += n
	}

	slog.InfoContext(ctx, "Goal prices refreshed",
		"items", len(ids),
		"quoted", len(quotes),
		"goals_updated", updated)

	return nil
}
