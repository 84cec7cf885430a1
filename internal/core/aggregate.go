package core

import "math"

// Overview bundles the derived dashboard numbers. Everything here is computed
// from whatever dataset is currently loaded, never from the remote store.
type Overview struct {
	BankValue         int64   `json:"bankValue"`
	GoldValue         int64   `json:"goldValue"`
	GPHour            int64   `json:"gpHour"`
	GoalsValue        int64   `json:"goalsValue"`
	CompletionPercent float64 `json:"completionPercent"`
	DaysToComplete    float64 `json:"daysToComplete"` // +Inf when earn rate is zero and the target is not met
}

// BankValue sums item values across all characters' inventories.
func BankValue(d Dataset) int64 {
	var total int64
	for _, b := range d.BankItems {
		total += ItemValue(b)
	}
	return total
}

// GoldValue sums liquid currency only: character holdings plus coin and
// platinum-token bank items. All other items are excluded.
func GoldValue(d Dataset) int64 {
	var total int64
	for _, c := range d.Characters {
		total += c.Coins + c.PlatinumTokens*platinumTokenValue
	}
	for _, b := range d.BankItems {
		if IsCurrency(b) {
			total += ItemValue(b)
		}
	}
	return total
}

// CurrentGPHour sums the hourly rate of every method flagged active.
func CurrentGPHour(d Dataset) int64 {
	var total int64
	for _, m := range d.MoneyMethods {
		if m.Active {
			total += m.GPHour
		}
	}
	return total
}

// GoalsValue sums target price (falling back to current price when no target
// is set) times desired quantity over all purchase goals.
func GoalsValue(d Dataset) int64 {
	var total int64
	for _, g := range d.PurchaseGoals {
		price := g.TargetPrice
		if price == 0 {
			price = g.CurrentPrice
		}
		total += price * g.Quantity
	}
	return total
}

// CompletionPercent is gold over goals in [0, 100]. With nothing left to buy
// the answer is 100 by definition.
func CompletionPercent(goldValue, goalsValue int64) float64 {
	if goalsValue <= 0 {
		return 100
	}
	pct := float64(goldValue) / float64(goalsValue) * 100
	return math.Min(100, pct)
}

// DaysToComplete estimates days until the goals total is reachable at the
// current earn rate. Zero when already met, +Inf when the rate is zero and
// the target is not met.
func DaysToComplete(goalsValue, goldValue, gpHour int64, hoursPerDay float64) float64 {
	if goldValue >= goalsValue {
		return 0
	}
	perDay := float64(gpHour) * hoursPerDay
	if perDay <= 0 {
		return math.Inf(1)
	}
	return math.Ceil(float64(goalsValue-goldValue) / perDay)
}

// Summarize computes the full Overview in one pass-worth of calls.
func Summarize(d Dataset) Overview {
	gold := GoldValue(d)
	goals := GoalsValue(d)
	gph := CurrentGPHour(d)
	return Overview{
		BankValue:         BankValue(d),
		GoldValue:         gold,
		GPHour:            gph,
		GoalsValue:        goals,
		CompletionPercent: CompletionPercent(gold, goals),
		DaysToComplete:    DaysToComplete(goals, gold, gph, d.HoursPerDay),
	}
}

// ActivateMethod marks the named method active and deactivates any other
// method assigned to the same character. At most one method per character is
// active at a time; this toggle routine is the only enforcement point.
func (d *Dataset) ActivateMethod(name string) error {
	idx := -1
	for i := range d.MoneyMethods {
		if d.MoneyMethods[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownMethod
	}
	owner := d.MoneyMethods[idx].AssignedTo
	for i := range d.MoneyMethods {
		if i != idx && d.MoneyMethods[i].AssignedTo == owner && owner != "" {
			d.MoneyMethods[i].Active = false
		}
	}
	d.MoneyMethods[idx].Active = true
	return nil
}
