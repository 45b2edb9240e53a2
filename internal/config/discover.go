package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfig names the environment variable that pins the config file.
const EnvConfig = "PIXPORT_CONFIG"

// ErrNoConfig is returned by Discover when no search location holds a
// config file. Callers fall back to Default.
var ErrNoConfig = errors.New("no config file found")

// DefaultPath is where `pixport init` writes: $XDG_CONFIG_HOME/pixport/config.toml,
// or ~/.config/pixport/config.toml.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "pixport.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pixport", "config.toml")
}

// SearchPaths lists the locations Discover checks, most specific first:
// ./pixport.toml, the user config, each $XDG_CONFIG_DIRS entry (default
// /etc/xdg), then /etc/pixport/config.toml.
func SearchPaths() []string {
	paths := []string{"pixport.toml", DefaultPath()}

	dirs := os.Getenv("XDG_CONFIG_DIRS")
	if dirs == "" {
		dirs = "/etc/xdg"
	}
	for _, d := range filepath.SplitList(dirs) {
		if d == "" || !filepath.IsAbs(d) {
			continue
		}
		paths = append(paths, filepath.Join(d, "pixport", "config.toml"))
	}
	return append(paths, "/etc/pixport/config.toml")
}

// Discover returns the config file to load. PIXPORT_CONFIG, when set, must
// name an existing file; otherwise the first regular file in SearchPaths
// wins. ErrNoConfig is returned when none exists.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		if err := isFile(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, p, err)
		}
		return p, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if isFile(p) == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (checked %s)", ErrNoConfig, strings.Join(paths, ", "))
}

func isFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
