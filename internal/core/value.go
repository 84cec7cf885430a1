package core

import (
	"sort"
	"strings"
)

// Currency items are special-cased by name, not by a type field: anything
// named like coins is worth 1 gp each, platinum tokens 1000 gp each.
const platinumTokenValue = 1000

// ItemValue computes the gp value of a bank item: quantity times unit price,
// except for the coin and platinum name matches.
func ItemValue(b BankItem) int64 {
	name := strings.ToLower(b.Name)
	switch {
	case strings.Contains(name, "platinum"):
		return b.Quantity * platinumTokenValue
	case strings.Contains(name, "coin"):
		return b.Quantity
	default:
		return b.Quantity * b.EstimatedPrice
	}
}

// IsCurrency reports whether the item counts toward gold value
// (coins and platinum tokens only).
func IsCurrency(b BankItem) bool {
	name := strings.ToLower(b.Name)
	return strings.Contains(name, "coin") || strings.Contains(name, "platinum")
}

// Prioritize returns a new ordering of items sorted by ItemValue descending,
// ties broken by name ascending. The input slice is not mutated. Partial
// upload failure then bites the low-value tail first.
func Prioritize(items []BankItem) []BankItem {
	out := make([]BankItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := ItemValue(out[i]), ItemValue(out[j])
		if vi != vj {
			return vi > vj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopByValue returns up to n of the highest-value items, using the same
// ordering as Prioritize.
func TopByValue(items []BankItem, n int) []BankItem {
	ordered := Prioritize(items)
	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}
