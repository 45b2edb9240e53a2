package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so commands can run more
// than once per test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	configPath, jsonOutput, logLevel = "", false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeTestConfig writes a config keeping all state under dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	content := fmt.Sprintf(`[log]
level = "error"

[database]
path = %q

[storage]
url = %q
compression = "fastest"

[import]
continue_on_error = true
metadata_dir = %q

[events]
persist = true
retention_days = 7

[processing]
enabled = true
workers = 1
thumbnail_size = 4
`, filepath.Join(dir, "pixport.db"), filepath.Join(dir, "store"), dir)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeImage writes a 2x1 uint16 pixraw image with two z sections.
func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	data := make([]byte, 0, 8)
	for i := 0; i < 4; i++ {
		data = binary.BigEndian.AppendUint16(data, uint16(i*100))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".raw"), data, 0o644))
	header := fmt.Sprintf(`[pixraw]
version = 1

[[series]]
data = %q
size_x = 2
size_y = 1
size_z = 2
size_c = 1
size_t = 1
pixel_type = "uint16"
dimension_order = "XYZCT"
little_endian = false
`, name+".raw")
	path := filepath.Join(dir, name+".pix.toml")
	require.NoError(t, os.WriteFile(path, []byte(header), 0o644))
	return path
}
