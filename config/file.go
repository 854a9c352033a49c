package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// FromFile reads a YAML configuration file into a Config. Fields absent from
// the file stay zero and resolve normally through env vars and defaults.
//
// Duration fields accept Go duration strings ("5s", "250ms").
func FromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
