// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

// Observer is called synchronously for every frame that reaches the table,
// whether or not it changed the stored value. It runs on the goroutine that
// feeds the decoder and must return promptly.
type Observer func(id uint8, value uint16)

// Table holds the last known raw value of every sensor ID.
// It is indexed directly by ID; all 256 slots exist and start at 0.
type Table struct {
	values   [NumSensors]uint16
	cells    uint8
	observer Observer
}

// NewTable creates an empty sensor table
func NewTable() *Table {
	return &Table{}
}

// SetObserver registers the observer called on every update (nil removes it)
func (t *Table) SetObserver(observer Observer) {
	t.observer = observer
}

// Update stores value for id and reports whether it differs from the
// previous value. A slot that was never written holds 0, so a first value of
// 0 is reported as unchanged.
func (t *Table) Update(id uint8, value uint16) bool {
	if id == SensorCells {
		// The cell count only ever grows
		if index := CellIndex(value); index >= t.cells {
			t.cells = index + 1
		}
	}

	changed := t.values[id] != value
	t.values[id] = value

	if t.observer != nil {
		t.observer(id, value)
	}

	return changed
}

// Raw returns the stored value for id
func (t *Table) Raw(id uint8) uint16 {
	return t.values[id]
}

// Cells returns the number of battery cells seen so far
func (t *Table) Cells() uint8 {
	return t.cells
}

// Values returns a copy of every slot
func (t *Table) Values() [NumSensors]uint16 {
	return t.values
}
