package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. HPAT_ENGINE_MAX_PASSES.
const envPrefix = "HPAT"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

// Load reads the YAML file at path, applies HPAT_* overrides and validates.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "config: read %q", path)
	}
	return unmarshalAndValidate(v)
}

// LoadFromEnv builds a Config from defaults and HPAT_* variables only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndValidate(newViper())
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config: validation failed")
	}
	return cfg, nil
}
