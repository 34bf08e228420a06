// Package config loads library configuration from layered sources and
// validates it. It supplies engine defaults (worker pool size), the timezone
// for wall-clock resolution, and log settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment variables read by Load,
// e.g. CHRONO_SCHEDULER_WORKERS=8.
const envPrefix = "CHRONO_"

// Config is the root configuration structure.
type Config struct {
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Log       LogConfig       `koanf:"log"`
}

// SchedulerConfig carries the defaults applied to schedulers built from it.
type SchedulerConfig struct {
	// Workers is the default engine worker pool size.
	Workers int `koanf:"workers" validate:"min=1"`

	// Timezone is an IANA zone name used to resolve wall-clock time
	// expressions. Empty means local time.
	Timezone string `koanf:"timezone"`
}

// LogConfig controls the library logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

// Location resolves the configured timezone, defaulting to local time.
func (c *SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: unknown timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.yaml in the working directory (optional)
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return load("config.yaml", nil)
}

// LoadBytes loads configuration from raw YAML layered over the defaults and
// environment, for callers that manage their own files.
func LoadBytes(raw []byte) (*Config, error) {
	return load("", raw)
}

func load(path string, raw []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		// The YAML file is optional; a missing file keeps the defaults.
		_ = k.Load(file.Provider(path), yaml.Parser())
	}
	if raw != nil {
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config bytes: %w", err)
		}
	}

	if err := k.Load(envprovider.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"scheduler.workers":  5,
		"scheduler.timezone": "",

		"log.level":  "info",
		"log.pretty": false,
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}
