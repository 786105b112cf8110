package cmd

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings are the tool-wide defaults configurable via cacdb.yaml under
// the "settings" key. Flags override the file; the file overrides the
// built-in defaults.
type Settings struct {
	BatchSize   int    `mapstructure:"batch_size"`
	ColumnsFile string `mapstructure:"columns_file"`
	Backup      bool   `mapstructure:"backup"`
}

// GetSettings returns the effective settings from the loaded config.
func GetSettings() (*Settings, error) {
	var s Settings
	if err := viper.UnmarshalKey("settings", &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings config: %w", err)
	}
	return &s, nil
}
