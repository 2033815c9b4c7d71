// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	storePath     string
	storeDuration int
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Log every sensor update to the SQLite telemetry log",
	Long: `Record a telemetry session into the SQLite database (store.path).

Every frame applied to the sensor table is queued as an event and written in
batches (store.batch_size, flushed every store.flush_ms). The queue never
blocks decoding: when the database falls behind, events are dropped and
counted. When the session ends the final sensor table is stored with it.

List stored sessions with "hubscope sessions".`,
	RunE: runStore,
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.Flags().StringVar(&storePath, "db", "", "Database file (overrides store.path)")
	storeCmd.Flags().IntVar(&storeDuration, "duration", 0, "Stop after this many seconds (0 = until interrupted)")
}

// dbPath returns the --db flag or the configured database
func dbPath() string {
	if storePath != "" {
		return storePath
	}
	return cfg.Store.Path
}

func runStore(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	db := store.New(dbPath())
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Closing database: %v", err)
		}
	}()

	// The session must outlive the signal context so it can still be closed
	sessionCtx := context.Background()
	sessionID, err := db.CreateSession(sessionCtx, sourceName(cfg))
	if err != nil {
		return err
	}

	fmt.Printf("hubscope - Telemetry Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Database: %s (session %d)\n", dbPath(), sessionID)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, cancel := signalContext()
	defer cancel()
	if storeDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, time.Duration(storeDuration)*time.Second)
		defer stop()
	}

	queue := hub.NewEventQueue(cfg.Store.QueueSize)
	telemetry := hub.New()
	telemetry.SetInvert(cfg.Serial.Invert)
	telemetry.SetObserver(queue.Observe)

	var stored uint64
	drainErr := make(chan error, 1)
	go func() {
		flush := time.Duration(cfg.Store.FlushMs) * time.Millisecond
		// Drain runs to completion on the background context; the reader
		// closing the queue is what ends it
		drainErr <- queue.Drain(sessionCtx, cfg.Store.BatchSize, flush, func(batch []hub.Event) error {
			if err := db.InsertEvents(sessionCtx, sessionID, batch); err != nil {
				return err
			}
			stored += uint64(len(batch))
			return nil
		})
	}()

	readErr := readStream(ctx, conn, func(data []byte) {
		telemetry.Feed(data)
	})
	queue.Close()

	err = <-drainErr
	if err != nil {
		err = fmt.Errorf("storing events: %w", err)
	}
	if closeErr := db.CloseSession(sessionCtx, sessionID, telemetry.Snapshot()); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	c := telemetry.Counters()
	fmt.Printf("\nSession %d: %s events stored, %s dropped, %s received\n",
		sessionID,
		humanize.Comma(int64(stored)),
		humanize.Comma(int64(queue.Dropped())),
		humanize.Bytes(c.Bytes),
	)

	return errors.Join(err, readErr)
}
