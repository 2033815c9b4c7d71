// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
)

// snapshotRecord is the stored form of a hub.Snapshot. Only non-zero slots
// are kept.
type snapshotRecord struct {
	Values    map[uint8]uint16 `cbor:"1,keyasint"`
	Cells     uint8            `cbor:"2,keyasint"`
	Timestamp time.Time        `cbor:"3,keyasint"`
}

var snapshotEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// EncodeSnapshot serializes s to CBOR
func EncodeSnapshot(s hub.Snapshot) ([]byte, error) {
	rec := snapshotRecord{
		Values:    make(map[uint8]uint16),
		Cells:     s.Cells(),
		Timestamp: s.Timestamp(),
	}
	for _, id := range s.Active() {
		rec.Values[id] = s.Raw(id)
	}

	data, err := snapshotEncMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot
func DecodeSnapshot(data []byte) (hub.Snapshot, error) {
	var rec snapshotRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return hub.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}

	var values [hub.NumSensors]uint16
	for id, v := range rec.Values {
		values[id] = v
	}
	return hub.NewSnapshot(values, rec.Cells, rec.Timestamp), nil
}
