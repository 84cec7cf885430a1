// Package prices defines the lookup ports for live market prices and hiscore
// stats, with an HTTP adapter and an in-memory fake.
package prices

import (
	"context"
	"errors"

	"gptracker/internal/core"
)

var (
	ErrItemNotFound      = errors.New("item has no price data")
	ErrCharacterNotFound = errors.New("character not found on hiscores")
)

// Quote is the market price band for one item.
type Quote struct {
	High int64 `json:"high"`
	Low  int64 `json:"low"`
}

// Mid is the midpoint of the band, used as the tracked goal price.
func (q Quote) Mid() int64 {
	return (q.High + q.Low) / 2
}

// PriceSource looks up current market quotes by item id. Ids missing from
// the result simply had no quote; that is not an error.
type PriceSource interface {
	Quotes(ctx context.Context, ids []int64) (map[int64]Quote, error)
}

// Stats is the subset of hiscore fields the tracker keeps per character.
type Stats struct {
	CombatLevel int              `json:"combatLevel"`
	TotalLevel  int              `json:"totalLevel"`
	AccountType core.AccountType `json:"accountType"`
}

// StatsSource looks up a character's levels by display name.
type StatsSource interface {
	Lookup(ctx context.Context, name string) (Stats, error)
}
