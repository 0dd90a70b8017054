// Package config handles configuration loading and shared data structures.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string    `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	DataDir     string    `yaml:"data_dir,omitempty" json:"-"`
	Datasets    []Dataset `yaml:"datasets" json:"datasets"`
}

// Dataset represents a single remote GeoJSON resource to mirror locally.
type Dataset struct {
	Name        string   `yaml:"name" json:"name"`
	URL         string   `yaml:"url" json:"-"`
	Attribution string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"-"`

	// EPSG is the reference system the publisher documents for this
	// dataset. Sources routinely ship without a crs member, so this is
	// what gets patched in after download.
	EPSG int `yaml:"epsg,omitempty" json:"epsg,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	return &cfg, nil
}
