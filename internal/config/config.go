// Package config loads the runtime knobs for the id subsystem and its
// persistence sinks from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// LibIDSpace is the id range reserved per linked library.
	LibIDSpace int64 `yaml:"lib_id_space"`
	// ScanSoftLimit is the collection size above which full-scan recovery
	// starts logging warnings.
	ScanSoftLimit int `yaml:"scan_soft_limit"`

	Audit Audit `yaml:"audit"`
}

type Audit struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	// IndexDB is the sqlite index path; empty disables indexing.
	IndexDB string `yaml:"index_db"`
}

func Default() Config {
	return Config{
		LibIDSpace:    10_000_000,
		ScanSoftLimit: 10_000,
		Audit: Audit{
			Enabled: true,
			Dir:     "./data/audit",
			IndexDB: "./data/index.db",
		},
	}
}

// Load reads path and fills unset fields from Default.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if c.LibIDSpace <= 0 {
		c.LibIDSpace = Default().LibIDSpace
	}
	if c.ScanSoftLimit <= 0 {
		c.ScanSoftLimit = Default().ScanSoftLimit
	}
	return c, nil
}
