package backend

import (
	"fmt"

	"gptracker/internal/config"
)

// Config holds what each remote store implementation needs.
type Config struct {
	Type Type

	// Cloud dispatcher
	CloudSyncURL   string
	CloudSyncToken string

	// Google Sheets
	GoogleSpreadsheetID string
}

// FromAppConfig converts the application config to a backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.RemoteBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.RemoteBackend)
	}

	return Config{
		Type:                backendType,
		CloudSyncURL:        appConfig.CloudSyncURL,
		CloudSyncToken:      appConfig.CloudSyncToken,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CloudBackend:
		if c.CloudSyncURL == "" {
			return fmt.Errorf("cloud sync URL is required for cloud backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// Nothing to validate.
	}

	return nil
}
