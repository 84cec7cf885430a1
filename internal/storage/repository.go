// Package storage is the local SQLite persistence layer: the working
// dataset, the hours-per-day setting, dataset snapshots and the save saga's
// cursor all live in one database file.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gptracker/internal/core"
	gpsync "gptracker/internal/sync"

	_ "modernc.org/sqlite"
)

const settingHoursPerDay = "hours_per_day"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDataset reads the full working dataset.
func (r *SQLiteRepository) LoadDataset(ctx context.Context) (core.Dataset, error) {
	var d core.Dataset
	var err error

	if d.Characters, err = r.listCharacters(ctx); err != nil {
		return core.Dataset{}, err
	}
	if d.MoneyMethods, err = r.listMethods(ctx); err != nil {
		return core.Dataset{}, err
	}
	if d.PurchaseGoals, err = r.listGoals(ctx); err != nil {
		return core.Dataset{}, err
	}
	if d.BankItems, err = r.listBankItems(ctx, ""); err != nil {
		return core.Dataset{}, err
	}
	if d.HoursPerDay, err = r.HoursPerDay(ctx); err != nil {
		return core.Dataset{}, err
	}
	return d, nil
}

// SaveDataset replaces the full working dataset in one transaction.
func (r *SQLiteRepository) SaveDataset(ctx context.Context, d core.Dataset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"bank_items", "purchase_goals", "money_methods", "characters"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range d.Characters {
		if err := insertCharacter(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, m := range d.MoneyMethods {
		if err := insertMethod(ctx, tx, m); err != nil {
			return err
		}
	}
	for _, g := range d.PurchaseGoals {
		if err := insertGoal(ctx, tx, g); err != nil {
			return err
		}
	}
	for _, b := range d.BankItems {
		if err := insertBankItem(ctx, tx, b); err != nil {
			return err
		}
	}

	if err := putSetting(ctx, tx, settingHoursPerDay, strconv.FormatFloat(d.HoursPerDay, 'f', -1, 64)); err != nil {
		return err
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCharacter(ctx context.Context, e execer, c core.Character) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO characters (name, account_type, combat_level, total_level, coins, platinum_tokens, notes, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			account_type = excluded.account_type,
			combat_level = excluded.combat_level,
			total_level = excluded.total_level,
			coins = excluded.coins,
			platinum_tokens = excluded.platinum_tokens,
			notes = excluded.notes,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP`,
		c.Name, string(c.AccountType), c.CombatLevel, c.TotalLevel, c.Coins, c.PlatinumTokens, c.Notes, c.Active)
	if err != nil {
		return fmt.Errorf("upsert character %q: %w", c.Name, err)
	}
	return nil
}

func insertMethod(ctx context.Context, e execer, m core.MoneyMethod) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO money_methods (name, gp_hour, intensity, assigned_to, is_active, category, members_only)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			gp_hour = excluded.gp_hour,
			intensity = excluded.intensity,
			assigned_to = excluded.assigned_to,
			is_active = excluded.is_active,
			category = excluded.category,
			members_only = excluded.members_only`,
		m.Name, m.GPHour, m.Intensity, m.AssignedTo, m.Active, m.Category, m.MembersOnly)
	if err != nil {
		return fmt.Errorf("upsert money method %q: %w", m.Name, err)
	}
	return nil
}

func insertGoal(ctx context.Context, e execer, g core.PurchaseGoal) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO purchase_goals (name, item_id, current_price, target_price, quantity, priority, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			item_id = excluded.item_id,
			current_price = excluded.current_price,
			target_price = excluded.target_price,
			quantity = excluded.quantity,
			priority = excluded.priority,
			category = excluded.category`,
		g.Name, g.ItemID, g.CurrentPrice, g.TargetPrice, g.Quantity, g.Priority, string(g.Category))
	if err != nil {
		return fmt.Errorf("upsert purchase goal %q: %w", g.Name, err)
	}
	return nil
}

func insertBankItem(ctx context.Context, e execer, b core.BankItem) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO bank_items (character, name, quantity, estimated_price, category)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (character, name) DO UPDATE SET
			quantity = excluded.quantity,
			estimated_price = excluded.estimated_price,
			category = excluded.category`,
		b.Character, b.Name, b.Quantity, b.EstimatedPrice, string(b.Category))
	if err != nil {
		return fmt.Errorf("upsert bank item %q/%q: %w", b.Character, b.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertCharacter(ctx context.Context, c core.Character) error {
	c.Sanitize()
	if err := c.Validate(); err != nil {
		return err
	}
	return insertCharacter(ctx, r.db, c)
}

func (r *SQLiteRepository) DeleteCharacter(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Bank rows and method assignments reference characters by display
	// name, so they go with the character.
	if _, err := tx.ExecContext(ctx, "DELETE FROM bank_items WHERE character = ?", name); err != nil {
		return fmt.Errorf("delete bank items for %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE money_methods SET assigned_to = '', is_active = 0 WHERE assigned_to = ?", name); err != nil {
		return fmt.Errorf("unassign methods for %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM characters WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete character %q: %w", name, err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpsertMethod(ctx context.Context, m core.MoneyMethod) error {
	m.Sanitize()
	if err := m.Validate(); err != nil {
		return err
	}
	return insertMethod(ctx, r.db, m)
}

func (r *SQLiteRepository) DeleteMethod(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM money_methods WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete money method %q: %w", name, err)
	}
	return nil
}

// SetActiveMethod marks one method active and deactivates every other
// method assigned to the same character.
func (r *SQLiteRepository) SetActiveMethod(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var assignedTo string
	err = tx.QueryRowContext(ctx, "SELECT assigned_to FROM money_methods WHERE name = ?", name).Scan(&assignedTo)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrUnknownMethod
	}
	if err != nil {
		return fmt.Errorf("look up money method %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE money_methods SET is_active = 0 WHERE assigned_to = ?", assignedTo); err != nil {
		return fmt.Errorf("deactivate methods for %q: %w", assignedTo, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE money_methods SET is_active = 1 WHERE name = ?", name); err != nil {
		return fmt.Errorf("activate money method %q: %w", name, err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpsertGoal(ctx context.Context, g core.PurchaseGoal) error {
	g.Sanitize()
	if err := g.Validate(); err != nil {
		return err
	}
	return insertGoal(ctx, r.db, g)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM purchase_goals WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete purchase goal %q: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertBankItem(ctx context.Context, b core.BankItem) error {
	b.Sanitize()
	if err := b.Validate(); err != nil {
		return err
	}
	return insertBankItem(ctx, r.db, b)
}

func (r *SQLiteRepository) DeleteBankItem(ctx context.Context, character, name string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM bank_items WHERE character = ? AND name = ?", character, name)
	if err != nil {
		return fmt.Errorf("delete bank item %q/%q: %w", character, name, err)
	}
	return nil
}

// ReplaceBank swaps out the bank rows of one character.
func (r *SQLiteRepository) ReplaceBank(ctx context.Context, character string, items []core.BankItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bank_items WHERE character = ?", character); err != nil {
		return fmt.Errorf("clear bank for %q: %w", character, err)
	}
	for _, b := range items {
		b.Character = character
		b.Sanitize()
		if err := b.Validate(); err != nil {
			return err
		}
		if err := insertBankItem(ctx, tx, b); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateGoalPrice refreshes the tracked market price of every goal with the
// given item id. Returns the number of goals touched.
func (r *SQLiteRepository) UpdateGoalPrice(ctx context.Context, itemID, price int64) (int, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE purchase_goals SET current_price = ? WHERE item_id = ?", price, itemID)
	if err != nil {
		return 0, fmt.Errorf("update goal price for item %d: %w", itemID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GoalItemIDs lists the distinct market item ids referenced by goals.
func (r *SQLiteRepository) GoalItemIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT item_id FROM purchase_goals WHERE item_id > 0")
	if err != nil {
		return nil, fmt.Errorf("list goal item ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) listCharacters(ctx context.Context) ([]core.Character, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, account_type, combat_level, total_level, coins, platinum_tokens, notes, active
		FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []core.Character
	for rows.Next() {
		var c core.Character
		var accountType string
		if err := rows.Scan(&c.Name, &accountType, &c.CombatLevel, &c.TotalLevel, &c.Coins, &c.PlatinumTokens, &c.Notes, &c.Active); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		c.AccountType = core.AccountType(accountType)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listMethods(ctx context.Context) ([]core.MoneyMethod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, gp_hour, intensity, assigned_to, is_active, category, members_only
		FROM money_methods ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list money methods: %w", err)
	}
	defer rows.Close()

	var out []core.MoneyMethod
	for rows.Next() {
		var m core.MoneyMethod
		if err := rows.Scan(&m.Name, &m.GPHour, &m.Intensity, &m.AssignedTo, &m.Active, &m.Category, &m.MembersOnly); err != nil {
			return nil, fmt.Errorf("scan money method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listGoals(ctx context.Context) ([]core.PurchaseGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, item_id, current_price, target_price, quantity, priority, category
		FROM purchase_goals ORDER BY priority, name`)
	if err != nil {
		return nil, fmt.Errorf("list purchase goals: %w", err)
	}
	defer rows.Close()

	var out []core.PurchaseGoal
	for rows.Next() {
		var g core.PurchaseGoal
		var category string
		if err := rows.Scan(&g.Name, &g.ItemID, &g.CurrentPrice, &g.TargetPrice, &g.Quantity, &g.Priority, &category); err != nil {
			return nil, fmt.Errorf("scan purchase goal: %w", err)
		}
		g.Category = core.Category(category)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listBankItems(ctx context.Context, character string) ([]core.BankItem, error) {
	query := "SELECT character, name, quantity, estimated_price, category FROM bank_items"
	var args []any
	if character != "" {
		query += " WHERE character = ?"
		args = append(args, character)
	}
	query += " ORDER BY character, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bank items: %w", err)
	}
	defer rows.Close()

	var out []core.BankItem
	for rows.Next() {
		var b core.BankItem
		var category string
		if err := rows.Scan(&b.Character, &b.Name, &b.Quantity, &b.EstimatedPrice, &category); err != nil {
			return nil, fmt.Errorf("scan bank item: %w", err)
		}
		b.Category = core.Category(category)
		out = append(out, b)
	}
	return out, rows.Err()
}

// BankItems lists bank rows, optionally for one character.
func (r *SQLiteRepository) BankItems(ctx context.Context, character string) ([]core.BankItem, error) {
	return r.listBankItems(ctx, character)
}

func putSetting(ctx context.Context, e execer, key, value string) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) SetHoursPerDay(ctx context.Context, hours float64) error {
	hours = core.SafeNumber(hours)
	if hours < 0 {
		hours = 0
	}
	if hours > core.MaxHoursPerDay {
		hours = core.MaxHoursPerDay
	}
	return putSetting(ctx, r.db, settingHoursPerDay, strconv.FormatFloat(hours, 'f', -1, 64))
}

func (r *SQLiteRepository) HoursPerDay(ctx context.Context) (float64, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", settingHoursPerDay).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read setting %q: %w", settingHoursPerDay, err)
	}
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse setting %q: %w", settingHoursPerDay, err)
	}
	return hours, nil
}

// Cursor returns the marker of the interrupted save, or a zero marker when
// no save is in flight.
func (r *SQLiteRepository) Cursor(ctx context.Context) (gpsync.SaveMarker, error) {
	var (
		m          gpsync.SaveMarker
		characters string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT step, snapshot_id, bank_only, force_save, characters
		FROM sync_cursor WHERE id = 1`).
		Scan(&m.Step, &m.SnapshotID, &m.Scope.BankOnly, &m.Scope.Force, &characters)
	if errors.Is(err, sql.ErrNoRows) {
		return gpsync.SaveMarker{}, nil
	}
	if err != nil {
		return gpsync.SaveMarker{}, fmt.Errorf("read sync cursor: %w", err)
	}
	if err := json.Unmarshal([]byte(characters), &m.Scope.Characters); err != nil {
		return gpsync.SaveMarker{}, fmt.Errorf("decode sync cursor characters: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SetCursor(ctx context.Context, m gpsync.SaveMarker) error {
	characters, err := json.Marshal(m.Scope.Characters)
	if err != nil {
		return fmt.Errorf("encode sync cursor characters: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_cursor (id, step, snapshot_id, bank_only, force_save, characters, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			step = excluded.step,
			snapshot_id = excluded.snapshot_id,
			bank_only = excluded.bank_only,
			force_save = excluded.force_save,
			characters = excluded.characters,
			updated_at = CURRENT_TIMESTAMP`,
		m.Step, m.SnapshotID, m.Scope.BankOnly, m.Scope.Force, string(characters))
	if err != nil {
		return fmt.Errorf("persist sync cursor: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearCursor(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sync_cursor WHERE id = 1"); err != nil {
		return fmt.Errorf("clear sync cursor: %w", err)
	}
	return nil
}
