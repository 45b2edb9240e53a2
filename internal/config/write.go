// internal/config/write.go
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed default_config.toml
var defaultConfig string

// DefaultConfig returns the annotated example configuration.
func DefaultConfig() string { return defaultConfig }

// WriteDefault writes the example config to the specified path.
// Creates parent directories if needed. An existing file is only replaced
// when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if _, err := f.WriteString(defaultConfig); err != nil {
		f.Close()
		return fmt.Errorf("write default config: %w", err)
	}
	return f.Close()
}

// Write serializes the config to TOML and writes it to the specified path.
func (c *Config) Write(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Encode(f)
}

// Encode writes the config as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
