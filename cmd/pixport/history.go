package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/pixport/internal/importer"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show import history",
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("batch", "", "Only show one batch")
	historyCmd.Flags().String("path", "", "Only show one file")
	historyCmd.Flags().String("status", "", "Filter by status (imported, failed)")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var filter importer.HistoryFilter
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if v, _ := cmd.Flags().GetString("batch"); v != "" {
		filter.BatchID = &v
	}
	if v, _ := cmd.Flags().GetString("path"); v != "" {
		filter.Path = &v
	}
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		if v != importer.StatusImported && v != importer.StatusFailed {
			return fmt.Errorf("invalid status %q", v)
		}
		filter.Status = &v
	}

	entries, err := importer.NewHistoryStore(a.db).List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history")
		return nil
	}

	fmt.Fprintf(w, "Import History (%d):\n\n", len(entries))
	fmt.Fprintf(w, "  %-14s %-9s %-8s %-6s %s\n", "TIME", "STATUS", "FORMAT", "PIXELS", "PATH")
	rule(w, 72)
	for _, e := range entries {
		fmt.Fprintf(w, "  %-14s %-9s %-8s %-6d %s\n",
			formatTimeAgo(e.CreatedAt), e.Status, truncate(e.Format, 8), e.Pixels, truncate(e.Path, 40))
		if e.Error != "" {
			fmt.Fprintf(w, "  %14s %s\n", "", truncate(e.Error, 60))
		}
	}
	return nil
}
