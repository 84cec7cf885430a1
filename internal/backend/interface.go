// Package backend selects and constructs the remote store implementation.
package backend

import (
	"context"

	"gptracker/internal/remote"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result bundles the remote store with its optional cleanup.
type Result struct {
	Store   remote.Store
	Cleanup CleanupFunc
}

// Factory creates remote stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Type names a remote store implementation.
type Type string

const (
	CloudBackend  Type = "cloud"
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case CloudBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types lists every valid backend type.
func Types() []Type {
	return []Type{CloudBackend, SheetsBackend, MemoryBackend}
}
