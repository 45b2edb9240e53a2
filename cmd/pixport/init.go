package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/vmunix/pixport/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitCmd,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := config.DefaultPath()
	if len(args) == 1 {
		path = args[0]
	}

	if err := config.WriteDefault(path, force); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists. Use --force to overwrite", path)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
