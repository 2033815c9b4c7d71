// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture manages numbered recording slots and the recorder that
// fills them.
package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultExtension is used when no extension is configured
const DefaultExtension = "hub"

// NextSlot returns one more than the highest slot number found in dir for
// files named <number>.<ext>. A missing directory yields slot 1.
func NextSlot(dir, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("reading slot directory: %w", err)
	}

	last := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if slot, ok := parseSlot(entry.Name(), ext); ok && slot > last {
			last = slot
		}
	}

	return last + 1, nil
}

// SlotPath returns the file path of slot in dir
func SlotPath(dir string, slot int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.%s", slot, ext))
}

func parseSlot(name, ext string) (int, bool) {
	base, ok := strings.CutSuffix(name, "."+ext)
	if !ok || base == "" {
		return 0, false
	}
	slot, err := strconv.Atoi(base)
	if err != nil || slot < 0 {
		return 0, false
	}
	return slot, true
}
