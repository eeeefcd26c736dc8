package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hpat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMaxPasses, cfg.Engine.MaxPasses)
	assert.Equal(t, "info", cfg.Logging().Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  json: true
engine:
  max_passes: 50
  single_concepts: [Letter, Word]
store:
  path: /tmp/runs.db
grammar:
  file: grammar.yaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 50, cfg.Engine.MaxPasses)
	assert.Equal(t, []string{"Letter", "Word"}, cfg.Engine.SingleConcepts)
	assert.Equal(t, DefaultWorkers, cfg.Engine.Workers)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
	assert.Equal(t, "grammar.yaml", cfg.Grammar.File)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  max_passes: 50\n")
	t.Setenv("HPAT_ENGINE_MAX_PASSES", "7")
	t.Setenv("HPAT_STORE_PATH", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.MaxPasses)
	assert.Equal(t, "env.db", cfg.Store.Path)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HPAT_LOG_LEVEL", "warn")
	t.Setenv("HPAT_HIERARCHY_ADDR", "localhost:7070")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "localhost:7070", cfg.Hierarchy.Addr)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad level":       func(c *Config) { c.Log.Level = "loud" },
		"negative passes": func(c *Config) { c.Engine.MaxPasses = -1 },
		"no workers":      func(c *Config) { c.Engine.Workers = 0 },
		"no store":        func(c *Config) { c.Store.Path = "" },
		"two hierarchies": func(c *Config) { c.Hierarchy.File = "h.yaml"; c.Hierarchy.DB = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Engine.MaxPasses = 0
	assert.NoError(t, cfg.Validate(), "zero disables the cap")
}
