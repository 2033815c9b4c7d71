// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"fmt"
	"sync"

	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
)

// Controller starts and stops a Recorder on pilot actions, giving every
// recording the next slot. It is safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	recorder Recorder
	dir      string
	ext      string
	next     int
}

// NewController creates a controller recording into dir. The first recording
// goes into the slot after the highest one already present.
func NewController(recorder Recorder, dir, ext string) (*Controller, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	next, err := NextSlot(dir, ext)
	if err != nil {
		return nil, err
	}
	return &Controller{
		recorder: recorder,
		dir:      dir,
		ext:      ext,
		next:     next,
	}, nil
}

// Recording reports whether the recorder is running
func (c *Controller) Recording() bool {
	return c.recorder.Recording()
}

// NextSlot returns the slot the next recording will use
func (c *Controller) NextSlot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Apply carries out action. It returns the path of a recording that was
// started, or "" otherwise. A failed start still consumes the slot.
func (c *Controller) Apply(action pilot.Action) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch action {
	case pilot.ActionStart:
		if c.recorder.Recording() {
			return "", nil
		}
		path := SlotPath(c.dir, c.next, c.ext)
		c.next++
		if err := c.recorder.Start(path); err != nil {
			return "", fmt.Errorf("starting slot %s: %w", path, err)
		}
		return path, nil

	case pilot.ActionStop:
		if !c.recorder.Recording() {
			return "", nil
		}
		if err := c.recorder.Stop(); err != nil {
			return "", fmt.Errorf("stopping recording: %w", err)
		}
	}

	return "", nil
}
