// Package config loads and saves pmengene's YAML configuration file, which
// supplies defaults for the CLI flags in cmd/pmengene.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
)

// Config is the on-disk pmengene configuration.
type Config struct {
	WorkerCount          int     `yaml:"worker_count"`
	Algorithm            string  `yaml:"algorithm"` // "auto", "lz4", "gzip", "zstd"
	Level                int     `yaml:"level"`     // 0 means algorithm default
	TrailerCRC           bool    `yaml:"trailer_crc"`
	VerifyOnWrite        bool    `yaml:"verify_on_write"`
	MemoryBudgetFraction float64 `yaml:"memory_budget_fraction"`
	Logging              Logging `yaml:"logging"`
}

// Logging configures logrus in cmd/pmengene.
type Logging struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns pmengene's built-in defaults, used when no config file is
// present and no flag overrides a field.
func Default() *Config {
	return &Config{
		WorkerCount:          0, // 0 means runtime.NumCPU()
		Algorithm:            "auto",
		Level:                0,
		TrailerCRC:           true,
		VerifyOnWrite:        false,
		MemoryBudgetFraction: 0.25,
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating its parent directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultPath returns the default per-user config file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./pmengene.yaml"
	}
	return filepath.Join(homeDir, ".config", "pmengene", "config.yaml")
}

// ParseAlgorithm maps the config/flag algorithm name to codec.Algorithm.
// "auto" and "" both return 0 (automatic selection).
func ParseAlgorithm(name string) (codec.Algorithm, error) {
	switch name {
	case "", "auto":
		return 0, nil
	case "lz4":
		return codec.LZ4, nil
	case "gzip":
		return codec.Gzip, nil
	case "zstd":
		return codec.Zstd, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q: want auto, lz4, gzip, or zstd", name)
	}
}
