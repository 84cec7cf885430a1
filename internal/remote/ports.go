// Package remote defines the ports for the cloud store that datasets sync to.
// Adapters live in subpackages: cloud (HTTP dispatcher), sheets (Google
// Sheets) and memory (in-process, for dev and tests).
package remote

import (
	"context"
	"errors"

	"gptracker/internal/core"
)

var (
	// ErrAuth is returned when the remote store rejects the caller's
	// credentials. Surfaced to the user as a blocking sign-in prompt.
	ErrAuth = errors.New("authentication required")

	// ErrUnavailable is returned for transient transport failures.
	ErrUnavailable = errors.New("remote store unavailable")
)

// SaveScope narrows what a save replaces. A bank-only save deletes and
// reinserts only the bank rows of the named characters; a full save replaces
// everything. There is no transaction spanning the steps.
type SaveScope struct {
	BankOnly   bool     `json:"bankOnly"`
	Characters []string `json:"characters,omitempty"` // delete scope for bank-only saves
	Force      bool     `json:"force"`                // bypass the empty-overwrite guard
}

// SaveCounts reports rows confirmed inserted per collection.
type SaveCounts struct {
	Characters    int `json:"characters"`
	MoneyMethods  int `json:"moneyMethods"`
	PurchaseGoals int `json:"purchaseGoals"`
	BankItems     int `json:"bankItems"`
}

// Total is the combined confirmed row count.
func (c SaveCounts) Total() int {
	return c.Characters + c.MoneyMethods + c.PurchaseGoals + c.BankItems
}

// Ports for outbound adapters.
type (
	// DatasetReader loads the full remote dataset.
	DatasetReader interface {
		Load(ctx context.Context) (core.Dataset, error)
	}

	// DatasetWriter performs a single unbatched replace. Small datasets
	// take this path.
	DatasetWriter interface {
		Save(ctx context.Context, d core.Dataset, scope SaveScope) (SaveCounts, error)
	}

	// RecordStore is the stepwise write surface the chunked save saga
	// drives: scoped clear, then per-collection inserts, bank items in
	// batches.
	RecordStore interface {
		Clear(ctx context.Context, scope SaveScope) error
		InsertCharacters(ctx context.Context, cs []core.Character) (int, error)
		InsertMethods(ctx context.Context, ms []core.MoneyMethod) (int, error)
		InsertGoals(ctx context.Context, gs []core.PurchaseGoal) (int, error)
		InsertBankItems(ctx context.Context, bs []core.BankItem) (int, error)
		PutSettings(ctx context.Context, hoursPerDay float64) error
	}

	// BankItemInserter is the slice of RecordStore the batch uploader needs.
	BankItemInserter interface {
		InsertBankItems(ctx context.Context, bs []core.BankItem) (int, error)
	}

	// Store is the full remote surface.
	Store interface {
		DatasetReader
		DatasetWriter
		RecordStore
	}
)
