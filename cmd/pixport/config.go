package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/pixport/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Load and validate the config file",
	RunE:  runConfigTestCmd,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShowCmd,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigTestCmd(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	cfg, path, err := loadConfig()
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(w, "Config invalid: %s\n", cfgErr.Path)
			for _, p := range cfgErr.Problems() {
				fmt.Fprintf(w, "  - %s\n", p)
			}
			return errors.New("config invalid")
		}
		return err
	}
	if path == "" {
		fmt.Fprintln(w, "No config file found; using defaults")
	} else {
		fmt.Fprintf(w, "Config OK: %s\n", path)
	}
	fmt.Fprintf(w, "  database: %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  storage:  %s\n", cfg.Storage.URL)
	return nil
}

func runConfigShowCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), cfg)
	}
	return cfg.Encode(cmd.OutOrStdout())
}
