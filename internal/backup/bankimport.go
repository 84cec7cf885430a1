package backup

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gptracker/internal/core"
)

var ErrNoBankRows = errors.New("bank dump contains no rows")

// pluginItem is one entry of the JSON array the bank-export plugin emits.
type pluginItem struct {
	ID       int64  `json:"id"`
	Quantity int64  `json:"quantity"`
	Name     string `json:"name"`
}

// ParseBankDump reads a bank dump for one character. Two shapes are
// accepted: the plugin's JSON array of {id, quantity, name}, or a headered
// CSV with name, quantity and value columns. Anything else is an error; a
// half-parsed dump is never returned.
func ParseBankDump(r io.Reader, character string) ([]core.BankItem, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bank dump: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrNoBankRows
	}

	var items []core.BankItem
	if trimmed[0] == '[' {
		items, err = parsePluginJSON(trimmed, character)
	} else {
		items, err = parseBankCSV(trimmed, character)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoBankRows
	}

	for i := range items {
		items[i].Sanitize()
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("bank dump row %d: %w", i+1, err)
		}
	}
	return items, nil
}

func parsePluginJSON(raw []byte, character string) ([]core.BankItem, error) {
	var rows []pluginItem
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode plugin bank dump: %w", err)
	}

	items := make([]core.BankItem, 0, len(rows))
	for i, row := range rows {
		if row.Name == "" {
			return nil, fmt.Errorf("plugin bank dump entry %d has no name", i+1)
		}
		items = append(items, core.BankItem{
			Character: character,
			Name:      row.Name,
			Quantity:  row.Quantity,
			Category:  core.CategoryOther,
		})
	}
	return items, nil
}

func parseBankCSV(raw []byte, character string) ([]core.BankItem, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	nameCol, qtyCol, valueCol := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name", "item", "item name":
			nameCol = i
		case "quantity", "qty", "amount":
			qtyCol = i
		case "value", "price", "ge value":
			valueCol = i
		}
	}
	if nameCol < 0 || qtyCol < 0 {
		return nil, fmt.Errorf("csv header %v lacks name/quantity columns", header)
	}

	var items []core.BankItem
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		line++

		qty, err := strconv.ParseInt(strings.TrimSpace(record[qtyCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: bad quantity %q", line, record[qtyCol])
		}
		item := core.BankItem{
			Character: character,
			Name:      record[nameCol],
			Quantity:  qty,
			Category:  core.CategoryOther,
		}
		if valueCol >= 0 && valueCol < len(record) {
			value, err := strconv.ParseInt(strings.TrimSpace(record[valueCol]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: bad value %q", line, record[valueCol])
			}
			item.EstimatedPrice = value
		}
		items = append(items, item)
	}
	return items, nil
}
