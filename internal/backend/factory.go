package backend

import (
	"context"
	"fmt"
	"log/slog"

	"gptracker/internal/remote/cloud"
	"gptracker/internal/remote/memory"
	"gptracker/internal/remote/sheets"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CloudBackend:
		f.logger.Info("Initialized cloud sync backend", "endpoint", config.CloudSyncURL)
		return &Result{Store: cloud.New(config.CloudSyncURL, config.CloudSyncToken)}, nil

	case SheetsBackend:
		cli, err := sheets.New(ctx, config.GoogleSpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets backend: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend",
			"spreadsheet_id", config.GoogleSpreadsheetID)
		return &Result{Store: cli}, nil

	case MemoryBackend:
		f.logger.Info("Initialized in-memory backend")
		return &Result{Store: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
