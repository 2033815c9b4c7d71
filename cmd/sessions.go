// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var sessionsShow int64

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List telemetry sessions stored by the store command",
	Long: `List the sessions in the telemetry log, oldest first.

With --show the final sensor table of one session is printed as well.`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVar(&storePath, "db", "", "Database file (overrides store.path)")
	sessionsCmd.Flags().Int64Var(&sessionsShow, "show", 0, "Print the final sensor table of this session")
}

func runSessions(cmd *cobra.Command, args []string) error {
	path := dbPath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("telemetry log %s: %w", path, err)
	}

	db := store.New(path)
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Closing database: %v", err)
		}
	}()

	ctx := context.Background()
	sessions, err := db.Sessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tSTARTED\tDURATION\tEVENTS")
	for _, s := range sessions {
		duration := "open"
		if s.EndTime != nil {
			duration = formatUptime(uint64(s.EndTime.Sub(s.StartTime).Milliseconds()))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			s.ID, s.Source, humanize.Time(s.StartTime), duration, humanize.Comma(s.Events))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if sessionsShow == 0 {
		return nil
	}

	snap, err := db.Snapshot(ctx, sessionsShow)
	if errors.Is(err, store.ErrNoSnapshot) {
		fmt.Printf("\nSession %d is still open\n", sessionsShow)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nSession %d, %d cells, table at %s:\n", sessionsShow, snap.Cells(), snap.Timestamp().Format("2006-01-02 15:04:05"))
	fmt.Print(hub.FormatSnapshot(snap))
	return nil
}
