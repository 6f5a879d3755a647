package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MergeFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values. Secrets are tagged yaml:"-" and only come from
// the environment.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
