// internal/config/write_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "pixport", "config.toml")

	err := WriteDefault(path, false)
	require.NoError(t, err, "WriteDefault failed")

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read written file")

	assert.Contains(t, string(content), "[storage]")
	assert.Contains(t, string(content), "[import.target]")
	assert.Contains(t, string(content), "${PIXPORT_STORAGE:-./data/store}")
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0644))

	err := WriteDefault(path, false)
	assert.ErrorIs(t, err, os.ErrExist)

	require.NoError(t, WriteDefault(path, true))
	content, _ := os.ReadFile(path)
	assert.Equal(t, DefaultConfig(), string(content))
}

func TestWriteDefault_LoadsClean(t *testing.T) {
	t.Setenv("PIXPORT_STORAGE", "mem://")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mem://", cfg.Storage.URL)
	assert.True(t, cfg.Events.Persist)
	assert.Equal(t, []string{".txt", ".xml", ".csv", ".log", ".ini", ".json"}, cfg.Import.CompanionExts)
}

func TestConfig_Write(t *testing.T) {
	cfg := Default()
	cfg.Storage.URL = "gs://pixport-planes"
	cfg.Processing.Workers = 9

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.Write(path), "Write failed")

	content, _ := os.ReadFile(path)
	assert.Contains(t, string(content), "gs://pixport-planes")

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, back.Processing.Workers)
}
