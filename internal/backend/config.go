package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to store config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := Type(appConfig.DataBackend)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid store type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:       storeType,
		SQLitePath: appConfig.SQLitePath,
	}, nil
}

// Validate validates the store configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Type)
	}
	if c.Type == SQLiteStore && c.SQLitePath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite store")
	}
	return nil
}
