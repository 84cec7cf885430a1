// Package backup handles dataset export/import as a portable JSON document
// and ingestion of bank dumps from external tools.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gptracker/internal/core"
)

// FormatVersion is bumped when the export envelope changes shape.
const FormatVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported backup version")
	ErrEmptyBackup        = errors.New("backup contains no data")
)

// Document is the export envelope. The data block uses the same field names
// as the sync payload, so an export is also a valid remote save body.
type Document struct {
	Version   int          `json:"version"`
	Timestamp string       `json:"timestamp"`
	Data      core.Dataset `json:"data"`
}

// Export writes the dataset as an indented JSON document.
func Export(w io.Writer, d core.Dataset) error {
	doc := Document{
		Version:   FormatVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      d,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Import parses a backup document and returns the sanitized dataset. Bad
// input fails loudly; nothing is silently skipped or defaulted.
func Import(r io.Reader) (core.Dataset, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return core.Dataset{}, fmt.Errorf("decode backup: %w", err)
	}
	if doc.Version <= 0 || doc.Version > FormatVersion {
		return core.Dataset{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if doc.Data.IsEmpty() {
		return core.Dataset{}, ErrEmptyBackup
	}

	doc.Data.Sanitize()
	for _, c := range doc.Data.Characters {
		if err := c.Validate(); err != nil {
			return core.Dataset{}, fmt.Errorf("character %q: %w", c.Name, err)
		}
	}
	for _, m := range doc.Data.MoneyMethods {
		if err := m.Validate(); err != nil {
			return core.Dataset{}, fmt.Errorf("money method %q: %w", m.Name, err)
		}
	}
	for _, g := range doc.Data.PurchaseGoals {
		if err := g.Validate(); err != nil {
			return core.Dataset{}, fmt.Errorf("purchase goal %q: %w", g.Name, err)
		}
	}
	for _, b := range doc.Data.BankItems {
		if err := b.Validate(); err != nil {
			return core.Dataset{}, fmt.Errorf("bank item %q: %w", b.Name, err)
		}
	}
	return doc.Data, nil
}
