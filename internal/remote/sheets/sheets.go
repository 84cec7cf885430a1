// Package sheets is a Google Sheets adapter for the remote store port. Each
// collection lives on its own tab; rows are plain values, no formulas.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gptracker/internal/core"
	"gptracker/internal/remote"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	charactersTab = "Characters"
	methodsTab    = "Methods"
	goalsTab      = "Goals"
	bankTab       = "Bank"
	settingsTab   = "Settings"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ remote.Store = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet. Credentials come
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Load(ctx context.Context) (core.Dataset, error) {
	if c.svc == nil {
		return core.Dataset{}, errors.New("sheets service not initialized")
	}

	var d core.Dataset

	rows, err := c.readTab(ctx, charactersTab)
	if err != nil {
		return d, err
	}
	for _, row := range rows {
		d.Characters = append(d.Characters, core.Character{
			Name:           cell(row, 0),
			AccountType:    core.AccountType(cell(row, 1)),
			CombatLevel:    int(cellInt(row, 2)),
			TotalLevel:     int(cellInt(row, 3)),
			Coins:          cellInt(row, 4),
			PlatinumTokens: cellInt(row, 5),
			Notes:          cell(row, 6),
			Active:         cell(row, 7) == "true",
		})
	}

	rows, err = c.readTab(ctx, methodsTab)
	if err != nil {
		return d, err
	}
	for _, row := range rows {
		d.MoneyMethods = append(d.MoneyMethods, core.MoneyMethod{
			Name:        cell(row, 0),
			GPHour:      cellInt(row, 1),
			Intensity:   int(cellInt(row, 2)),
			AssignedTo:  cell(row, 3),
			Active:      cell(row, 4) == "true",
			Category:    cell(row, 5),
			MembersOnly: cell(row, 6) == "true",
		})
	}

	rows, err = c.readTab(ctx, goalsTab)
	if err != nil {
		return d, err
	}
	for _, row := range rows {
		d.PurchaseGoals = append(d.PurchaseGoals, core.PurchaseGoal{
			Name:         cell(row, 0),
			ItemID:       cellInt(row, 1),
			CurrentPrice: cellInt(row, 2),
			TargetPrice:  cellInt(row, 3),
			Quantity:     cellInt(row, 4),
			Priority:     int(cellInt(row, 5)),
			Category:     core.NormalizeCategory(cell(row, 6)),
		})
	}

	rows, err = c.readTab(ctx, bankTab)
	if err != nil {
		return d, err
	}
	for _, row := range rows {
		d.BankItems = append(d.BankItems, core.BankItem{
			Character:      cell(row, 0),
			Name:           cell(row, 1),
			Quantity:       cellInt(row, 2),
			EstimatedPrice: cellInt(row, 3),
			Category:       core.NormalizeCategory(cell(row, 4)),
		})
	}

	rows, err = c.readTab(ctx, settingsTab)
	if err != nil {
		return d, err
	}
	for _, row := range rows {
		if cell(row, 0) == "hoursPerDay" {
			if v, err := strconv.ParseFloat(cell(row, 1), 64); err == nil {
				d.HoursPerDay = core.SafeNumber(v)
			}
		}
	}

	slog.DebugContext(ctx, "Loaded dataset from sheets", "records", d.RecordCount())
	return d, nil
}

func (c *Client) Save(ctx context.Context, d core.Dataset, scope remote.SaveScope) (remote.SaveCounts, error) {
	if err := c.Clear(ctx, scope); err != nil {
		return remote.SaveCounts{}, err
	}
	var counts remote.SaveCounts
	var err error
	if !scope.BankOnly {
		if counts.Characters, err = c.InsertCharacters(ctx, d.Characters); err != nil {
			return counts, err
		}
		if counts.MoneyMethods, err = c.InsertMethods(ctx, d.MoneyMethods); err != nil {
			return counts, err
		}
		if counts.PurchaseGoals, err = c.InsertGoals(ctx, d.PurchaseGoals); err != nil {
			return counts, err
		}
		if err = c.PutSettings(ctx, d.HoursPerDay); err != nil {
			return counts, err
		}
	}
	if counts.BankItems, err = c.InsertBankItems(ctx, d.BankItems); err != nil {
		return counts, err
	}
	return counts, nil
}

// Clear wipes the tabs in scope. Bank-only saves scoped to specific
// characters keep the other characters' rows by rewriting the tab.
func (c *Client) Clear(ctx context.Context, scope remote.SaveScope) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if !scope.BankOnly {
		for _, tab := range []string{charactersTab, methodsTab, goalsTab, bankTab} {
			if err := c.clearTab(ctx, tab); err != nil {
				return err
			}
		}
		return nil
	}
	if len(scope.Characters) == 0 {
		return c.clearTab(ctx, bankTab)
	}

	rows, err := c.readTab(ctx, bankTab)
	if err != nil {
		return err
	}
	inScope := make(map[string]bool, len(scope.Characters))
	for _, name := range scope.Characters {
		inScope[name] = true
	}
	var kept [][]any
	for _, row := range rows {
		if !inScope[cell(row, 0)] {
			kept = append(kept, row)
		}
	}
	if err := c.clearTab(ctx, bankTab); err != nil {
		return err
	}
	if len(kept) == 0 {
		return nil
	}
	return c.appendRows(ctx, bankTab, kept)
}

func (c *Client) InsertCharacters(ctx context.Context, cs []core.Character) (int, error) {
	rows := make([][]any, 0, len(cs))
	for _, ch := range cs {
		rows = append(rows, []any{
			ch.Name, string(ch.AccountType), ch.CombatLevel, ch.TotalLevel,
			ch.Coins, ch.PlatinumTokens, ch.Notes, strconv.FormatBool(ch.Active),
		})
	}
	if err := c.appendRows(ctx, charactersTab, rows); err != nil {
		return 0, err
	}
	return len(cs), nil
}

func (c *Client) InsertMethods(ctx context.Context, ms []core.MoneyMethod) (int, error) {
	rows := make([][]any, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []any{
			m.Name, m.GPHour, m.Intensity, m.AssignedTo,
			strconv.FormatBool(m.Active), m.Category, strconv.FormatBool(m.MembersOnly),
		})
	}
	if err := c.appendRows(ctx, methodsTab, rows); err != nil {
		return 0, err
	}
	return len(ms), nil
}

func (c *Client) InsertGoals(ctx context.Context, gs []core.PurchaseGoal) (int, error) {
	rows := make([][]any, 0, len(gs))
	for _, g := range gs {
		rows = append(rows, []any{
			g.Name, g.ItemID, g.CurrentPrice, g.TargetPrice,
			g.Quantity, g.Priority, string(g.Category),
		})
	}
	if err := c.appendRows(ctx, goalsTab, rows); err != nil {
		return 0, err
	}
	return len(gs), nil
}

func (c *Client) InsertBankItems(ctx context.Context, bs []core.BankItem) (int, error) {
	rows := make([][]any, 0, len(bs))
	for _, b := range bs {
		rows = append(rows, []any{
			b.Character, b.Name, b.Quantity, b.EstimatedPrice, string(b.Category),
		})
	}
	if err := c.appendRows(ctx, bankTab, rows); err != nil {
		return 0, err
	}
	return len(bs), nil
}

func (c *Client) PutSettings(ctx context.Context, hoursPerDay float64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:B1", settingsTab)
	vr := &gsheet.ValueRange{Values: [][]any{{"hoursPerDay", hoursPerDay}}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func (c *Client) readTab(ctx context.Context, tab string) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:H", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var rows [][]any
	for _, row := range resp.Values {
		if len(row) == 0 || strings.TrimSpace(fmt.Sprint(row[0])) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Client) clearTab(ctx context.Context, tab string) error {
	rng := fmt.Sprintf("%s!A:H", tab)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) appendRows(ctx context.Context, tab string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	rng := fmt.Sprintf("%s!A:H", tab)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	return nil
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func cellInt(row []any, i int) int64 {
	v, err := strconv.ParseInt(cell(row, i), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
