package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	internal "github.com/ZanzyTHEbar/dialogue-prep/dprep"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/corpus"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/text"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file, environment variables and overrides.
type Config struct {
	Corpus   CorpusConfig   `mapstructure:"corpus"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Split    SplitConfig    `mapstructure:"split"`
	Output   OutputConfig   `mapstructure:"output"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

// CorpusConfig locates the input corpus.
type CorpusConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// PipelineConfig stores preprocessing settings.
type PipelineConfig struct {
	MaxLength int    `mapstructure:"maxLength"`
	PadToken  string `mapstructure:"padToken"`
	Workers   int    `mapstructure:"workers"`
}

// SplitConfig stores the train/validation split settings.
// A nil Seed means every run draws a fresh random split.
type SplitConfig struct {
	HeldOutFraction float64 `mapstructure:"heldOutFraction"`
	Seed            *int64  `mapstructure:"seed"`
}

// OutputConfig stores serializer settings.
type OutputConfig struct {
	Path       string `mapstructure:"path"`
	SplitFiles bool   `mapstructure:"splitFiles"`
	Indent     bool   `mapstructure:"indent"`
}

// StoreConfig stores the optional run store connection. Empty DSN disables it.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoadConfig reads configuration from file or environment variables. Overrides, keyed by
// dotted config key, take precedence over both.
func LoadConfig(configPath string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(internal.DefaultSystemConfigDir)
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName(internal.DefaultConfigName)
		v.SetConfigType("yaml")
	}

	// Set default values
	v.SetDefault("corpus.path", "")
	v.SetDefault("corpus.format", internal.DefaultCorpusFormat)
	v.SetDefault("pipeline.maxLength", internal.DefaultMaxLength)
	v.SetDefault("pipeline.padToken", internal.DefaultPadToken)
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("split.heldOutFraction", internal.DefaultHeldOutFraction)
	v.SetDefault("output.path", internal.DefaultOutputPath)
	v.SetDefault("output.splitFiles", true)
	v.SetDefault("output.indent", false)
	v.SetDefault("store.dsn", "")
	v.SetDefault("log.level", internal.DefaultLogLevel)
	v.SetDefault("log.pretty", false)

	// e.g. split.heldOutFraction becomes DPREP_SPLIT_HELDOUTFRACTION
	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// seed has no default, so Unmarshal only sees it when bound explicitly
	if err := v.BindEnv("split.seed"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot drive a pipeline run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Corpus.Path) == "" {
		return common.InvalidConfigf("corpus.path is required")
	}
	if !slices.Contains(corpus.Formats(), strings.ToLower(strings.TrimSpace(c.Corpus.Format))) {
		return common.InvalidConfigf("corpus.format %q is not one of %s", c.Corpus.Format, strings.Join(corpus.Formats(), ", "))
	}
	if c.Pipeline.MaxLength < 1 {
		return common.InvalidConfigf("pipeline.maxLength must be >= 1, got %d", c.Pipeline.MaxLength)
	}
	if c.Pipeline.Workers < 0 {
		return common.InvalidConfigf("pipeline.workers cannot be negative, got %d", c.Pipeline.Workers)
	}
	if err := text.ValidatePadToken(c.Pipeline.PadToken); err != nil {
		return err
	}
	if f := c.Split.HeldOutFraction; !(f >= 0 && f <= 1) {
		return common.InvalidConfigf("split.heldOutFraction must be within [0, 1], got %v", f)
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return common.InvalidConfigf("output.path cannot be empty")
	}
	return nil
}

// SplitSeed returns the configured seed as the splitter expects it.
func (c *Config) SplitSeed() *uint64 {
	if c.Split.Seed == nil {
		return nil
	}
	s := uint64(*c.Split.Seed)
	return &s
}
