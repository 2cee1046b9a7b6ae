// Package config loads extractor configuration from an optional YAML file,
// EXIFX_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers   = errors.New("batch workers must be positive")
	ErrInvalidTimeout   = errors.New("exiftool timeouts must be positive")
	ErrInvalidChunkSize = errors.New("invalid scan size")
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "EXIFX"

// Default configuration values.
const (
	defaultWorkers        = 1
	defaultJSONTimeout    = "30s"
	defaultPlainTimeout   = "15s"
	defaultVersionTimeout = "5s"
	defaultChunkSize      = "1MiB"
	defaultOutputExt      = ".txt"
	defaultLogLevel       = "warn"
)

// FlagKeys maps configuration keys to the command-line flags bound to them.
var FlagKeys = map[string]string{
	"exiftool.path":     "exiftool",
	"exiftool.disabled": "no-exiftool",
	"exiftool.binding":  "exiftool-binding",
	"batch.workers":     "workers",
	"logging.level":     "log-level",
}

// Config holds all extractor configuration.
type Config struct {
	ExifTool ExifToolConfig `mapstructure:"exiftool"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ExifToolConfig controls discovery and use of the external tool.
type ExifToolConfig struct {
	Path           string        `mapstructure:"path"`
	JSONTimeout    time.Duration `mapstructure:"json_timeout"`
	PlainTimeout   time.Duration `mapstructure:"plain_timeout"`
	VersionTimeout time.Duration `mapstructure:"version_timeout"`
	Disabled       bool          `mapstructure:"disabled"`
	Binding        bool          `mapstructure:"binding"`
}

// ScanConfig controls the raw-byte fallback scan. Sizes accept
// humanized values such as "512KiB" or "4MB".
type ScanConfig struct {
	ChunkSize string `mapstructure:"chunk_size"`
	MaxBytes  string `mapstructure:"max_bytes"`

	chunk int
	max   int64
}

// ChunkBytes returns the parsed chunk size.
func (s ScanConfig) ChunkBytes() int { return s.chunk }

// MaxBytesLimit returns the parsed scan cap; zero means unlimited.
func (s ScanConfig) MaxBytesLimit() int64 { return s.max }

// BatchConfig controls the directory driver.
type BatchConfig struct {
	Extensions []string `mapstructure:"extensions"`
	OutputExt  string   `mapstructure:"output_ext"`
	Workers    int      `mapstructure:"workers"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration. configPath may be empty, in which case an
// "exif-extractor.yaml" in the working directory is used if present.
// flags may be nil; otherwise the flags named in FlagKeys override file
// and environment values when set.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("exif-extractor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	if err := validateConfig(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// ExifTool defaults.
	v.SetDefault("exiftool.path", "")
	v.SetDefault("exiftool.disabled", false)
	v.SetDefault("exiftool.binding", false)
	v.SetDefault("exiftool.json_timeout", defaultJSONTimeout)
	v.SetDefault("exiftool.plain_timeout", defaultPlainTimeout)
	v.SetDefault("exiftool.version_timeout", defaultVersionTimeout)

	// Scan defaults.
	v.SetDefault("scan.chunk_size", defaultChunkSize)
	v.SetDefault("scan.max_bytes", "0")

	// Batch defaults.
	v.SetDefault("batch.workers", defaultWorkers)
	v.SetDefault("batch.extensions", core.ImageExtensions)
	v.SetDefault("batch.output_ext", defaultOutputExt)

	// Logging defaults.
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", true)
}

func validateConfig(cfg *Config) error {
	if cfg.Batch.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Batch.Workers)
	}

	for name, d := range map[string]time.Duration{
		"json_timeout":    cfg.ExifTool.JSONTimeout,
		"plain_timeout":   cfg.ExifTool.PlainTimeout,
		"version_timeout": cfg.ExifTool.VersionTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidTimeout, name, d)
		}
	}

	chunk, err := humanize.ParseBytes(cfg.Scan.ChunkSize)
	if err != nil || chunk == 0 || chunk > 1<<30 {
		return fmt.Errorf("%w: chunk_size=%q", ErrInvalidChunkSize, cfg.Scan.ChunkSize)
	}
	cfg.Scan.chunk = int(chunk)

	limit, err := humanize.ParseBytes(cfg.Scan.MaxBytes)
	if err != nil {
		return fmt.Errorf("%w: max_bytes=%q", ErrInvalidChunkSize, cfg.Scan.MaxBytes)
	}
	cfg.Scan.max = int64(limit)

	cfg.Batch.Extensions = normalizeExtensions(cfg.Batch.Extensions)
	if cfg.Batch.OutputExt != "" && !strings.HasPrefix(cfg.Batch.OutputExt, ".") {
		cfg.Batch.OutputExt = "." + cfg.Batch.OutputExt
	}
	return nil
}

// normalizeExtensions lowercases entries and adds a missing leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
