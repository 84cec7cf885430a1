// Package memory is an in-process remote store used for development and
// handler tests. It mirrors the semantics of the real adapters, including
// scoped deletes and the non-atomic stepwise write surface.
package memory

import (
	"context"
	"sync"

	"gptracker/internal/core"
	"gptracker/internal/remote"
)

type Store struct {
	mu          sync.Mutex
	characters  []core.Character
	methods     []core.MoneyMethod
	goals       []core.PurchaseGoal
	bankItems   []core.BankItem
	hoursPerDay float64
}

var _ remote.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed replaces the whole store content. Test helper.
func (s *Store) Seed(d core.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = append([]core.Character(nil), d.Characters...)
	s.methods = append([]core.MoneyMethod(nil), d.MoneyMethods...)
	s.goals = append([]core.PurchaseGoal(nil), d.PurchaseGoals...)
	s.bankItems = append([]core.BankItem(nil), d.BankItems...)
	s.hoursPerDay = d.HoursPerDay
}

func (s *Store) Load(_ context.Context) (core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Dataset{
		Characters:    append([]core.Character(nil), s.characters...),
		MoneyMethods:  append([]core.MoneyMethod(nil), s.methods...),
		PurchaseGoals: append([]core.PurchaseGoal(nil), s.goals...),
		BankItems:     append([]core.BankItem(nil), s.bankItems...),
		HoursPerDay:   s.hoursPerDay,
	}, nil
}

func (s *Store) Save(ctx context.Context, d core.Dataset, scope remote.SaveScope) (remote.SaveCounts, error) {
	if err := s.Clear(ctx, scope); err != nil {
		return remote.SaveCounts{}, err
	}
	var counts remote.SaveCounts
	var err error
	if !scope.BankOnly {
		if counts.Characters, err = s.InsertCharacters(ctx, d.Characters); err != nil {
			return counts, err
		}
		if counts.MoneyMethods, err = s.InsertMethods(ctx, d.MoneyMethods); err != nil {
			return counts, err
		}
		if counts.PurchaseGoals, err = s.InsertGoals(ctx, d.PurchaseGoals); err != nil {
			return counts, err
		}
		if err = s.PutSettings(ctx, d.HoursPerDay); err != nil {
			return counts, err
		}
	}
	if counts.BankItems, err = s.InsertBankItems(ctx, d.BankItems); err != nil {
		return counts, err
	}
	return counts, nil
}

func (s *Store) Clear(_ context.Context, scope remote.SaveScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !scope.BankOnly {
		s.characters = nil
		s.methods = nil
		s.goals = nil
		s.bankItems = nil
		return nil
	}
	if len(scope.Characters) == 0 {
		s.bankItems = nil
		return nil
	}
	inScope := make(map[string]bool, len(scope.Characters))
	for _, name := range scope.Characters {
		inScope[name] = true
	}
	kept := s.bankItems[:0]
	for _, b := range s.bankItems {
		if !inScope[b.Character] {
			kept = append(kept, b)
		}
	}
	s.bankItems = kept
	return nil
}

func (s *Store) InsertCharacters(_ context.Context, cs []core.Character) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = append(s.characters, cs...)
	return len(cs), nil
}

func (s *Store) InsertMethods(_ context.Context, ms []core.MoneyMethod) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = append(s.methods, ms...)
	return len(ms), nil
}

func (s *Store) InsertGoals(_ context.Context, gs []core.PurchaseGoal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, gs...)
	return len(gs), nil
}

func (s *Store) InsertBankItems(_ context.Context, bs []core.BankItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bankItems = append(s.bankItems, bs...)
	return len(bs), nil
}

func (s *Store) PutSettings(_ context.Context, hoursPerDay float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hoursPerDay = hoursPerDay
	return nil
}
