// Package config loads engine, storage and hierarchy settings from a YAML
// file and HPAT_* environment variables.
package config

import (
	"github.com/cockroachdb/errors"

	"github.com/agi-now/hpat/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Store     StoreConfig     `mapstructure:"store"`
	Hierarchy HierarchyConfig `mapstructure:"hierarchy"`
	Grammar   GrammarConfig   `mapstructure:"grammar"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// EngineConfig tunes the extraction engine.
type EngineConfig struct {
	// MaxPasses caps the fixpoint loop; 0 disables the cap.
	MaxPasses      int      `mapstructure:"max_passes"`
	SingleConcepts []string `mapstructure:"single_concepts"`
	Workers        int      `mapstructure:"workers"`
}

// StoreConfig locates the run database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// HierarchyConfig picks at most one hierarchy source. With none set, the
// grammar's inline hierarchy is used.
type HierarchyConfig struct {
	File string `mapstructure:"file"`
	Addr string `mapstructure:"addr"`
	// DB reads concept edges from the run database.
	DB bool `mapstructure:"db"`
}

// GrammarConfig locates the rule file.
type GrammarConfig struct {
	File string `mapstructure:"file"`
}

// Logging converts the log section for logging.New.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, JSON: c.Log.JSON}
}

// Validate checks ranges and mutually exclusive settings.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Engine.MaxPasses < 0 {
		return errors.Newf("engine.max_passes must be >= 0, got %d", c.Engine.MaxPasses)
	}
	if c.Engine.Workers < 1 {
		return errors.Newf("engine.workers must be >= 1, got %d", c.Engine.Workers)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}

	sources := 0
	for _, set := range []bool{c.Hierarchy.File != "", c.Hierarchy.Addr != "", c.Hierarchy.DB} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("hierarchy: set at most one of file, addr, db")
	}
	return nil
}
