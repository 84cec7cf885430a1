package core

import (
	"math"
	"testing"
)

func TestBankAndGoldValueCurrencyScenarios(t *testing.T) {
	d := Dataset{
		BankItems: []BankItem{
			{Character: "Alice", Name: "Coins", Quantity: 1000},
			{Character: "Alice", Name: "Platinum Tokens", Quantity: 5},
			{Character: "Alice", Name: "Rune ore", Quantity: 10, EstimatedPrice: 11000},
		},
	}
	if got := BankValue(d); got != 1000+5000+110000 {
		t.Fatalf("BankValue = %d", got)
	}
	// gold counts currency only
	if got := GoldValue(d); got != 1000+5000 {
		t.Fatalf("GoldValue = %d", got)
	}
}

func TestGoldValueIncludesCharacterHoldings(t *testing.T) {
	d := Dataset{
		Characters: []Character{
			{Name: "Alice", Coins: 250, PlatinumTokens: 2},
		},
	}
	if got := GoldValue(d); got != 250+2000 {
		t.Fatalf("GoldValue = %d", got)
	}
}

func TestCurrentGPHour(t *testing.T) {
	d := Dataset{
		MoneyMethods: []MoneyMethod{
			{Name: "Vorkath", GPHour: 3_000_000, Active: true},
			{Name: "Zulrah", GPHour: 2_500_000},
			{Name: "Herb runs", GPHour: 500_000, Active: true},
		},
	}
	if got := CurrentGPHour(d); got != 3_500_000 {
		t.Fatalf("CurrentGPHour = %d", got)
	}
}

func TestGoalsValueTargetFallsBackToCurrent(t *testing.T) {
	d := Dataset{
		PurchaseGoals: []PurchaseGoal{
			{Name: "Twisted bow", TargetPrice: 1_100_000_000, CurrentPrice: 1_200_000_000, Quantity: 1},
			{Name: "Prayer potion", CurrentPrice: 10_000, Quantity: 100},
		},
	}
	if got := GoalsValue(d); got != 1_100_000_000+1_000_000 {
		t.Fatalf("GoalsValue = %d", got)
	}
}

func TestCompletionPercent(t *testing.T) {
	cases := []struct {
		gold, goals int64
		want        float64
	}{
		{0, 0, 100},
		{50, 0, 100},
		{50, 100, 50},
		{150, 100, 100}, // capped
		{0, 100, 0},
	}
	for i, tc := range cases {
		got := CompletionPercent(tc.gold, tc.goals)
		if got != tc.want {
			t.Fatalf("case %d: CompletionPercent(%d, %d) = %v, want %v", i, tc.gold, tc.goals, got, tc.want)
		}
		if got < 0 || got > 100 {
			t.Fatalf("case %d: out of range: %v", i, got)
		}
	}
}

func TestDaysToComplete(t *testing.T) {
	// already met: 0 regardless of rate
	if got := DaysToComplete(100, 150, 1, 6); got != 0 {
		t.Fatalf("expected 0 when met, got %v", got)
	}
	if got := DaysToComplete(100, 150, 0, 0); got != 0 {
		t.Fatalf("expected 0 when met with zero rate, got %v", got)
	}
	// zero earn rate and not met: unbounded
	if got := DaysToComplete(100, 0, 0, 6); !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf, got %v", got)
	}
	if got := DaysToComplete(100, 0, 500_000, 0); !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf with zero hours, got %v", got)
	}
	// ceil((1_000_000 - 0) / (100_000 * 5)) = 2
	if got := DaysToComplete(1_000_000, 0, 100_000, 5); got != 2 {
		t.Fatalf("expected 2 days, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	d := Dataset{
		Characters: []Character{{Name: "Alice", Coins: 1000}},
		MoneyMethods: []MoneyMethod{
			{Name: "Vorkath", GPHour: 500_000, Active: true, AssignedTo: "Alice"},
		},
		PurchaseGoals: []PurchaseGoal{{Name: "Bandos", CurrentPrice: 2000, Quantity: 1}},
		BankItems:     []BankItem{{Character: "Alice", Name: "Coins", Quantity: 500}},
		HoursPerDay:   6,
	}
	ov := Summarize(d)
	if ov.GoldValue != 1500 {
		t.Fatalf("GoldValue = %d", ov.GoldValue)
	}
	if ov.BankValue != 500 {
		t.Fatalf("BankValue = %d", ov.BankValue)
	}
	if ov.GPHour != 500_000 {
		t.Fatalf("GPHour = %d", ov.GPHour)
	}
	if ov.CompletionPercent != 75 {
		t.Fatalf("CompletionPercent = %v", ov.CompletionPercent)
	}
	if ov.DaysToComplete != 1 {
		t.Fatalf("DaysToComplete = %v", ov.DaysToComplete)
	}
}

func TestActivateMethodDeactivatesSameCharacter(t *testing.T) {
	d := Dataset{
		MoneyMethods: []MoneyMethod{
			{Name: "Vorkath", GPHour: 500_000, Active: true, AssignedTo: "Alice"},
			{Name: "Zulrah", GPHour: 2_000_000, AssignedTo: "Alice"},
			{Name: "Herb runs", GPHour: 300_000, Active: true, AssignedTo: "Bob"},
		},
	}
	if err := d.ActivateMethod("Zulrah"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.MoneyMethods[0].Active {
		t.Fatalf("expected Vorkath deactivated")
	}
	if !d.MoneyMethods[1].Active {
		t.Fatalf("expected Zulrah active")
	}
	// other characters untouched
	if !d.MoneyMethods[2].Active {
		t.Fatalf("expected Bob's method untouched")
	}
}

func TestActivateMethodUnknown(t *testing.T) {
	d := Dataset{}
	if err := d.ActivateMethod("nope"); err != ErrUnknownMethod {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}
