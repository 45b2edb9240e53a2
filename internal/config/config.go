// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"crypto"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"

	"github.com/vmunix/pixport/internal/model"
)

// Config is the root configuration structure.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Database   DatabaseConfig   `toml:"database"`
	Storage    StorageConfig    `toml:"storage"`
	Import     ImportConfig     `toml:"import"`
	Events     EventsConfig     `toml:"events"`
	Report     ReportConfig     `toml:"report"`
	Processing ProcessingConfig `toml:"processing"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "text" or "json"
	File       string `toml:"file"`   // empty logs to stderr
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// StorageConfig locates the bucket holding planes, archived files and thumbnails.
// URL is a gocloud blob URL (file://, mem://, gs://, s3://) or a local directory.
type StorageConfig struct {
	URL         string `toml:"url"`
	Prefix      string `toml:"prefix"`
	Compression string `toml:"compression"`
}

type ImportConfig struct {
	Format          string       `toml:"format"` // forces a reader; empty detects
	Archive         bool         `toml:"archive"`
	ContinueOnError bool         `toml:"continue_on_error"`
	Digest          string       `toml:"digest"`
	MetadataDir     string       `toml:"metadata_dir"`
	CompanionExts   []string     `toml:"companion_exts"`
	Target          TargetConfig `toml:"target"`
}

type TargetConfig struct {
	Kind string `toml:"kind"`
	ID   int64  `toml:"id"`
	Name string `toml:"name"`
}

type EventsConfig struct {
	Persist       bool `toml:"persist"`
	RetentionDays int  `toml:"retention_days"`
}

type ReportConfig struct {
	Enabled bool          `toml:"enabled"`
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

type ProcessingConfig struct {
	Enabled       bool `toml:"enabled"`
	Workers       int  `toml:"workers"`
	ThumbnailSize int  `toml:"thumbnail_size"`
}

var digests = map[string]crypto.Hash{
	"sha1":   crypto.SHA1,
	"sha256": crypto.SHA256,
	"sha512": crypto.SHA512,
}

// Hash returns the configured digest algorithm.
func (c ImportConfig) Hash() crypto.Hash {
	if h, ok := digests[strings.ToLower(c.Digest)]; ok {
		return h
	}
	return crypto.SHA1
}

// EncoderLevel maps the compression name to a zstd level.
func (c StorageConfig) EncoderLevel() zstd.EncoderLevel {
	if ok, level := zstd.EncoderLevelFromString(c.Compression); ok {
		return level
	}
	return zstd.SpeedDefault
}

// Target converts the configured import target.
func (c TargetConfig) Target() model.Target {
	return model.Target{Kind: model.TargetKind(strings.ToLower(c.Kind)), ID: c.ID, Name: c.Name}
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	cfg, err := parse(content)
	if err != nil {
		return nil, &ConfigError{Path: path, Parse: err}
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, leaving
// unresolved variables in place and skipping validation.
func LoadWithoutValidation(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	content, _ := substituteEnvVars(string(data))
	cfg, err := parse(content)
	if err != nil {
		return nil, &ConfigError{Path: path, Parse: err}
	}
	return cfg, nil
}

func parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/pixport.db"
	}
	if c.Storage.URL == "" {
		c.Storage.URL = "./data/store"
	}
	if c.Storage.Compression == "" {
		c.Storage.Compression = "default"
	}
	if c.Import.Digest == "" {
		c.Import.Digest = "sha1"
	}
	if c.Report.Timeout == 0 {
		c.Report.Timeout = 30 * time.Second
	}
	if c.Processing.Workers == 0 {
		c.Processing.Workers = 2
	}
	if c.Processing.ThumbnailSize == 0 {
		c.Processing.ThumbnailSize = 96
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}`)

// substituteEnvVars replaces variable references with environment values.
// Unresolved references are left unchanged and reported in missing.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case "-":
			if value == "" {
				return arg
			}
			return value
		case "?":
			if value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
				return match
			}
			return value
		}
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
