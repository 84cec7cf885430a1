package core

import (
	"errors"
	"math"
	"strings"
)

const (
	AccountMain     AccountType = "main"
	AccountAlt      AccountType = "alt"
	AccountIronman  AccountType = "ironman"
	AccountHardcore AccountType = "hardcore"
	AccountUltimate AccountType = "ultimate"
)

const (
	SnapshotManual  SnapshotKind = "manual"
	SnapshotAuto    SnapshotKind = "auto"
	SnapshotChunked SnapshotKind = "chunked"
)

// Clamp ranges applied at the validation boundary.
const (
	MinCombatLevel = 3
	MaxCombatLevel = 126
	MinTotalLevel  = 32
	MaxTotalLevel  = 2277
	MinIntensity   = 1
	MaxIntensity   = 5
	MinPriority    = 1
	MaxPriority    = 9
	MaxHoursPerDay = 24
)

type (
	AccountType  string
	SnapshotKind string

	Character struct {
		Name           string      `json:"name"`
		AccountType    AccountType `json:"accountType"`
		CombatLevel    int         `json:"combatLevel"`
		TotalLevel     int         `json:"totalLevel"`
		Coins          int64       `json:"coins"`
		PlatinumTokens int64       `json:"platinumTokens"`
		Notes          string      `json:"notes"`
		Active         bool        `json:"active"`
	}

	MoneyMethod struct {
		Name        string `json:"name"`
		GPHour      int64  `json:"gpHour"`
		Intensity   int    `json:"intensity"`
		AssignedTo  string `json:"assignedTo"` // character display name
		Active      bool   `json:"isActive"`
		Category    string `json:"category"`
		MembersOnly bool   `json:"membersOnly"`
	}

	PurchaseGoal struct {
		Name         string   `json:"name"`
		ItemID       int64    `json:"itemId"`
		CurrentPrice int64    `json:"currentPrice"`
		TargetPrice  int64    `json:"targetPrice"`
		Quantity     int64    `json:"quantity"`
		Priority     int      `json:"priority"` // 1 (highest) .. 9
		Category     Category `json:"category"`
	}

	BankItem struct {
		Character      string   `json:"character"` // display name, not an id
		Name           string   `json:"name"`
		Quantity       int64    `json:"quantity"`
		EstimatedPrice int64    `json:"estimatedPrice"`
		Category       Category `json:"category"`
	}

	// Dataset is the unit of save, load, export and snapshot.
	Dataset struct {
		Characters    []Character    `json:"characters"`
		MoneyMethods  []MoneyMethod  `json:"moneyMethods"`
		PurchaseGoals []PurchaseGoal `json:"purchaseGoals"`
		BankItems     []BankItem     `json:"bankData"`
		HoursPerDay   float64        `json:"hoursPerDay"`
	}

	// SnapshotMeta describes a stored point-in-time copy of a Dataset.
	SnapshotMeta struct {
		ID        int64        `json:"id"`
		Version   int64        `json:"version"`
		Kind      SnapshotKind `json:"kind"`
		CreatedAt string       `json:"createdAt"`
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCharacter   = errors.New("empty character name")
	ErrUnknownMethod    = errors.New("unknown money method")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ValidAccountType reports whether t is one of the five account variants.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountMain, AccountAlt, AccountIronman, AccountHardcore, AccountUltimate:
		return true
	default:
		return false
	}
}

// ClampInt constrains v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeNumber coerces non-finite values to zero. Malformed numeric input is
// never surfaced as an error at this boundary.
func SafeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Sanitize clamps levels to their documented ranges and coerces invalid
// fields to safe defaults. It never fails.
func (c *Character) Sanitize() {
	c.Name = strings.TrimSpace(c.Name)
	if !ValidAccountType(c.AccountType) {
		c.AccountType = AccountMain
	}
	c.CombatLevel = ClampInt(c.CombatLevel, MinCombatLevel, MaxCombatLevel)
	c.TotalLevel = ClampInt(c.TotalLevel, MinTotalLevel, MaxTotalLevel)
	c.Coins = nonNegative(c.Coins)
	c.PlatinumTokens = nonNegative(c.PlatinumTokens)
}

func (c Character) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func (m *MoneyMethod) Sanitize() {
	m.Name = strings.TrimSpace(m.Name)
	m.AssignedTo = strings.TrimSpace(m.AssignedTo)
	m.GPHour = nonNegative(m.GPHour)
	m.Intensity = ClampInt(m.Intensity, MinIntensity, MaxIntensity)
}

func (m MoneyMethod) Validate() error {
	if m.Name == "" {
		return ErrEmptyName
	}
	if len(m.Name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func (g *PurchaseGoal) Sanitize() {
	g.Name = strings.TrimSpace(g.Name)
	g.CurrentPrice = nonNegative(g.CurrentPrice)
	g.TargetPrice = nonNegative(g.TargetPrice)
	g.Quantity = nonNegative(g.Quantity)
	if g.Quantity == 0 {
		g.Quantity = 1
	}
	g.Priority = ClampInt(g.Priority, MinPriority, MaxPriority)
	g.Category = NormalizeCategory(string(g.Category))
}

func (g PurchaseGoal) Validate() error {
	if g.Name == "" {
		return ErrEmptyName
	}
	if len(g.Name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func (b *BankItem) Sanitize() {
	b.Character = strings.TrimSpace(b.Character)
	b.Name = strings.TrimSpace(b.Name)
	b.Quantity = nonNegative(b.Quantity)
	b.EstimatedPrice = nonNegative(b.EstimatedPrice)
	b.Category = NormalizeCategory(string(b.Category))
}

func (b BankItem) Validate() error {
	if b.Name == "" {
		return ErrEmptyName
	}
	if b.Character == "" {
		return ErrEmptyCharacter
	}
	return nil
}

// Sanitize runs every record through its validation boundary. Records stay in
// place; nothing is dropped here.
func (d *Dataset) Sanitize() {
	for i := range d.Characters {
		d.Characters[i].Sanitize()
	}
	for i := range d.MoneyMethods {
		d.MoneyMethods[i].Sanitize()
	}
	for i := range d.PurchaseGoals {
		d.PurchaseGoals[i].Sanitize()
	}
	for i := range d.BankItems {
		d.BankItems[i].Sanitize()
	}
	d.HoursPerDay = SafeNumber(d.HoursPerDay)
	if d.HoursPerDay < 0 {
		d.HoursPerDay = 0
	}
	if d.HoursPerDay > MaxHoursPerDay {
		d.HoursPerDay = MaxHoursPerDay
	}
}

// IsEmpty reports whether the dataset holds no records at all.
func (d Dataset) IsEmpty() bool {
	return len(d.Characters) == 0 &&
		len(d.MoneyMethods) == 0 &&
		len(d.PurchaseGoals) == 0 &&
		len(d.BankItems) == 0
}

// RecordCount is the combined number of records across all collections.
// Saves above the chunking threshold are routed through the batch uploader.
func (d Dataset) RecordCount() int {
	return len(d.Characters) + len(d.MoneyMethods) + len(d.PurchaseGoals) + len(d.BankItems)
}
