package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/pixport/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show persisted import events",
	RunE:  runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsCmd.Flags().String("file", "", "Only show events about one file")
	eventsCmd.Flags().Duration("since", 0, "Only show events newer than this (e.g. 1h)")
	eventsCmd.Flags().Bool("prune", false, "Delete events older than events.retention_days")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	w := cmd.OutOrStdout()
	log := events.NewEventLog(a.db, a.log)

	if prune, _ := cmd.Flags().GetBool("prune"); prune {
		days := a.cfg.Events.RetentionDays
		if days <= 0 {
			return fmt.Errorf("events.retention_days is not set")
		}
		n, err := log.Prune(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Pruned %d events\n", n)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	file, _ := cmd.Flags().GetString("file")
	since, _ := cmd.Flags().GetDuration("since")

	var raw []events.RawEvent
	switch {
	case file != "":
		raw, err = log.ForFile(file)
	case since > 0:
		raw, err = log.Since(time.Now().Add(-since))
	default:
		raw, err = log.Recent(limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	if jsonOutput {
		registry := events.DefaultRegistry()
		decoded := make([]events.Event, 0, len(raw))
		for _, r := range raw {
			e, err := registry.Unmarshal(r)
			if err != nil {
				a.log.Debug("skip event", "id", r.ID, "error", err)
				continue
			}
			decoded = append(decoded, e)
		}
		return printJSON(w, decoded)
	}

	if len(raw) == 0 {
		fmt.Fprintln(w, "No events")
		return nil
	}

	fmt.Fprintf(w, "Events (%d):\n\n", len(raw))
	fmt.Fprintf(w, "  %-14s %-24s %s\n", "TIME", "TYPE", "FILE")
	rule(w, 72)
	for _, e := range raw {
		fmt.Fprintf(w, "  %-14s %-24s %s\n", formatTimeAgo(e.OccurredAt), e.EventType, truncate(e.Subject, 40))
	}
	return nil
}
