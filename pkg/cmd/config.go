package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/ksysoev/fedsearch/pkg/api"
	"github.com/ksysoev/fedsearch/pkg/core"
)

type appConfig struct {
	Index   IndexConfig         `mapstructure:"index"`
	Sources []core.SourceConfig `mapstructure:"sources"`
	Limits  LimitsConfig        `mapstructure:"limits"`
	Kiwix   core.KiwixConfig    `mapstructure:"kiwix"`
	Ollama  core.OllamaConfig   `mapstructure:"ollama"`
	API     api.Config          `mapstructure:"api"`
}

// IndexConfig locates and tunes the local search index.
type IndexConfig struct {
	Dir               string `mapstructure:"dir"`
	WriterMemoryBytes int    `mapstructure:"writer_memory_bytes"`
}

// LimitsConfig bounds result sizes and per-document indexing.
type LimitsConfig struct {
	DefaultResultLimit int `mapstructure:"default_result_limit"`
	MaxResultLimit     int `mapstructure:"max_result_limit"`
	MaxIndexedChars    int `mapstructure:"max_indexed_chars"`
}

func (c *appConfig) applyDefaults() {
	if c.Index.WriterMemoryBytes <= 0 {
		c.Index.WriterMemoryBytes = core.DefaultWriterMemoryBytes
	}

	if c.Limits.DefaultResultLimit <= 0 {
		c.Limits.DefaultResultLimit = core.DefaultResultLimit
	}

	if c.Limits.MaxResultLimit <= 0 {
		c.Limits.MaxResultLimit = core.DefaultMaxResultLimit
	}

	if c.Limits.MaxIndexedChars <= 0 {
		c.Limits.MaxIndexedChars = core.DefaultMaxIndexedChars
	}

	c.Kiwix.ApplyDefaults()
	c.Ollama.ApplyDefaults()
}

// kiwixEnabled reports whether federation is configured: base_url is the
// signal, since an optional nested struct can't distinguish "absent" from
// "zero value" once flattened through viper/mapstructure.
func (c *appConfig) kiwixEnabled() bool {
	return strings.TrimSpace(c.Kiwix.BaseURL) != ""
}

// ollamaEnabled reports whether answer synthesis is configured.
func (c *appConfig) ollamaEnabled() bool {
	return strings.TrimSpace(c.Ollama.BaseURL) != ""
}

// loadConfig loads the application configuration from the specified file path and environment variables.
// It uses the provided args structure to determine the configuration path.
// The function returns a pointer to the appConfig structure and an error if something goes wrong.
func loadConfig(flags *cmdFlags) (*appConfig, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())

	if flags.ConfigPath != "" {
		v.SetConfigFile(flags.ConfigPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg appConfig

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	slog.Debug("config loaded", slog.Any("config", cfg))

	return &cfg, nil
}
