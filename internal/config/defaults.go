package config

import "github.com/spf13/viper"

// Default values.
const (
	DefaultLogLevel  = "info"
	DefaultMaxPasses = 1000
	DefaultWorkers   = 4
	DefaultStorePath = "hpat.db"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: DefaultLogLevel},
		Engine: EngineConfig{MaxPasses: DefaultMaxPasses, Workers: DefaultWorkers},
		Store:  StoreConfig{Path: DefaultStorePath},
	}
}

// setDefaults registers every key so HPAT_* variables bind even when the
// file does not mention them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)
	v.SetDefault("engine.max_passes", DefaultMaxPasses)
	v.SetDefault("engine.single_concepts", []string{})
	v.SetDefault("engine.workers", DefaultWorkers)
	v.SetDefault("store.path", DefaultStorePath)
	v.SetDefault("hierarchy.file", "")
	v.SetDefault("hierarchy.addr", "")
	v.SetDefault("hierarchy.db", false)
	v.SetDefault("grammar.file", "")
}
