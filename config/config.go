// Package config holds engine configuration, backed by viper with
// defaults, an optional YAML config file and KESTREL_-prefixed
// environment overrides.
package config

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config keys.
const (
	ConfigNetworkPath   = "network-path"
	ConfigThreads       = "threads"
	ConfigVisitLimit    = "visit-limit"
	ConfigCPuct         = "cpuct"
	ConfigUseGPU        = "use-gpu"
	ConfigBatchSize     = "batch-size"
	ConfigBatchDelay    = "batch-delay"
	ConfigCacheSize     = "cache-size"
	ConfigPlanes        = "planes"
	ConfigLogLevel      = "log-level"
	ConfigSearchLogFile = "search-log-file"
)

// evalEntryBytes approximates the in-memory footprint of one cached
// evaluation (the 1858-float policy vector dominates).
const evalEntryBytes = 1858*4 + 64

// Config wraps a viper instance. Accessors are viper's (GetInt, GetBool,
// GetString, GetDuration).
type Config struct {
	*viper.Viper
}

// New returns a config with defaults applied.
func New() *Config {
	v := viper.New()
	v.SetDefault(ConfigNetworkPath, "network.onnx")
	v.SetDefault(ConfigThreads, runtime.NumCPU())
	v.SetDefault(ConfigVisitLimit, 10000)
	v.SetDefault(ConfigCPuct, 15) // tenths: 15 means c_puct = 1.5
	v.SetDefault(ConfigUseGPU, false)
	v.SetDefault(ConfigBatchSize, 16)
	v.SetDefault(ConfigBatchDelay, 2*time.Millisecond)
	v.SetDefault(ConfigCacheSize, defaultCacheSize())
	v.SetDefault(ConfigPlanes, 112)
	v.SetDefault(ConfigLogLevel, "info")
	v.SetDefault(ConfigSearchLogFile, "")

	v.SetEnvPrefix("kestrel")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Config{Viper: v}
}

// Load reads an optional kestrel.yaml from the working directory or
// $HOME/.kestrel. A missing file is not an error.
func (c *Config) Load() error {
	c.SetConfigName("kestrel")
	c.SetConfigType("yaml")
	c.AddConfigPath(".")
	c.AddConfigPath("$HOME/.kestrel")
	err := c.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}
	if err == nil {
		log.Debug().Str("file", c.ConfigFileUsed()).Msg("loaded-config-file")
	}
	return nil
}

// CPuctValue converts the tenths-encoded cpuct option to a float.
func (c *Config) CPuctValue() float64 {
	return float64(c.GetInt(ConfigCPuct)) / 10.0
}

// defaultCacheSize bounds the evaluation cache at 100k entries, scaled
// down on small machines so the cache cannot eat more than a quarter of
// physical memory.
func defaultCacheSize() int {
	const maxEntries = 100000
	budget := memory.TotalMemory() / 4
	if budget == 0 {
		return maxEntries
	}
	byBudget := int(budget / evalEntryBytes)
	if byBudget < maxEntries {
		if byBudget < 1024 {
			return 1024
		}
		return byBudget
	}
	return maxEntries
}
