package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoggingConfig is the optional logging.yaml overlay. When present it
// overrides the main config's log level and selects the handler format.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "text" or "json"
	AddSource bool   `yaml:"add_source"`
}

// LoadLogging reads a logging.yaml file. A missing file is not an
// error; it returns nil so the caller falls back to the main config.
func LoadLogging(path string) (*LoggingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read logging config: %w", err)
	}

	var lc LoggingConfig
	if err := yaml.Unmarshal(data, &lc); err != nil {
		return nil, fmt.Errorf("parse logging config: %w", err)
	}
	return &lc, nil
}
