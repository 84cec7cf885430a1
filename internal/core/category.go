// Package core holds the tracker's domain types and the pure computation
// over them: category normalization, item valuation and dashboard aggregates.
package core

import "strings"

const (
	CategoryStackable Category = "stackable"
	CategoryGear      Category = "gear"
	CategoryMaterials Category = "materials"
	CategoryOther     Category = "other"
)

// Category is the fixed 4-value item classification. Every category field
// collapses to one of these before persistence.
type Category string

// categorySynonyms maps free-text labels (lowercased) onto the fixed enum.
// Labels arrive from plugin exports, CSV dumps and manual entry, so the
// table carries the spellings seen in the wild.
var categorySynonyms = map[string]Category{
	// canonical values map to themselves so normalization is idempotent
	"stackable": CategoryStackable,
	"gear":      CategoryGear,
	"materials": CategoryMaterials,
	"other":     CategoryOther,

	"potion":     CategoryStackable,
	"potions":    CategoryStackable,
	"rune":       CategoryStackable,
	"runes":      CategoryStackable,
	"food":       CategoryStackable,
	"consumable": CategoryStackable,
	"ammo":       CategoryStackable,
	"ammunition": CategoryStackable,
	"stack":      CategoryStackable,

	"weapon":    CategoryGear,
	"weapons":   CategoryGear,
	"armour":    CategoryGear,
	"armor":     CategoryGear,
	"equipment": CategoryGear,
	"jewellery": CategoryGear,
	"jewelry":   CategoryGear,
	"shield":    CategoryGear,

	"ore":       CategoryMaterials,
	"ores":      CategoryMaterials,
	"bar":       CategoryMaterials,
	"bars":      CategoryMaterials,
	"log":       CategoryMaterials,
	"logs":      CategoryMaterials,
	"herb":      CategoryMaterials,
	"herbs":     CategoryMaterials,
	"seed":      CategoryMaterials,
	"seeds":     CategoryMaterials,
	"hide":      CategoryMaterials,
	"hides":     CategoryMaterials,
	"gem":       CategoryMaterials,
	"gems":      CategoryMaterials,
	"material":  CategoryMaterials,
	"resource":  CategoryMaterials,
	"resources": CategoryMaterials,
	"supplies":  CategoryMaterials,
}

// NormalizeCategory collapses an arbitrary label to exactly one Category.
// Matching is case-insensitive exact match; anything unrecognized is
// absorbed silently as CategoryOther. It never errors and is idempotent.
func NormalizeCategory(s string) Category {
	if c, ok := categorySynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryOther
}

// Categories returns the fixed enum in display order.
func Categories() []Category {
	return []Category{CategoryStackable, CategoryGear, CategoryMaterials, CategoryOther}
}
