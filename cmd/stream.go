// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// readBufferSize matches a few hub frames per read at 9600 baud
const readBufferSize = 128

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// readStream reads conn until ctx is cancelled or the connection ends,
// passing every non-empty chunk to fn. A blocking read is interrupted by
// closing conn when ctx is done. Transient read errors are logged and the
// loop continues, the way a serial line recovers from a glitch.
func readStream(ctx context.Context, conn Connection, fn func([]byte)) error {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrConnectionClosed) {
			log.Printf("Connection closed")
			return nil
		}
		log.Printf("Read error: %v", err)
		// avoid spinning on a port that keeps failing
		time.Sleep(100 * time.Millisecond)
	}
}
