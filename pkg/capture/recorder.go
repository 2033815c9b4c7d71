// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrRecording is returned by Start while a recording is in progress
	ErrRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when nothing is being recorded
	ErrNotRecording = errors.New("not recording")
)

// Recorder is anything that can record into a file on request
type Recorder interface {
	Start(path string) error
	Stop() error
	Recording() bool
}

// FileRecorder records the raw telemetry byte stream. Bytes written while
// not recording are dropped.
type FileRecorder struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	written int64
}

// NewFileRecorder creates an idle recorder
func NewFileRecorder() *FileRecorder {
	return &FileRecorder{}
}

// Start opens path, creating its directory, and begins recording into it
func (r *FileRecorder) Start(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return ErrRecording
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}

	r.file = f
	r.path = path
	r.written = 0
	return nil
}

// Stop closes the current recording
func (r *FileRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return ErrNotRecording
	}

	err := r.file.Close()
	r.file = nil
	if err != nil {
		return fmt.Errorf("closing recording %s: %w", r.path, err)
	}
	return nil
}

// Recording reports whether a recording is open
func (r *FileRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file != nil
}

// Path returns the path of the current or last recording
func (r *FileRecorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Written returns the number of bytes in the current or last recording
func (r *FileRecorder) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Write implements io.Writer
func (r *FileRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return len(p), nil
	}

	n, err := r.file.Write(p)
	r.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing recording: %w", err)
	}
	return n, nil
}
