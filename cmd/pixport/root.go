package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "pixport",
	Short: "Import microscopy images into a pixel and metadata store",
	Long: `pixport - image import pipeline

Reads image files, records their metadata in SQLite and streams every
plane into a blob bucket, verifying each pixel set by digest.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("pixport {{.Version}}\n")
}
