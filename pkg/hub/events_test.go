// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventQueue_DropsWhenFull(t *testing.T) {
	q := NewEventQueue(2)

	q.Observe(0x01, 1)
	q.Observe(0x02, 2)
	q.Observe(0x03, 3)

	if q.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", q.Dropped())
	}

	q.Close()
	var got []uint8
	for ev := range q.Events() {
		got = append(got, ev.ID)
	}
	if len(got) != 2 || got[0] != 0x01 || got[1] != 0x02 {
		t.Errorf("Expected the first two events in order, got % X", got)
	}
}

func TestEventQueue_MinimumSize(t *testing.T) {
	q := NewEventQueue(0)
	q.Observe(0x01, 1)
	if q.Dropped() != 0 {
		t.Error("A zero-sized queue should still hold one event")
	}
}

func TestEventQueue_CloseTwice(t *testing.T) {
	q := NewEventQueue(1)
	q.Close()
	q.Close()
}

func TestEventQueue_ObservesTelemetry(t *testing.T) {
	q := NewEventQueue(16)
	tel := New()
	tel.SetObserver(q.Observe)

	tel.Feed(EncodeFrame(SensorRPM, 100))
	tel.Feed(EncodeFrame(SensorRPM, 100))
	q.Close()

	count := 0
	for ev := range q.Events() {
		if ev.ID != SensorRPM || ev.Value != 100 {
			t.Errorf("Unexpected event %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Error("Event should carry a timestamp")
		}
		count++
	}
	if count != 2 {
		t.Errorf("Expected an event per frame, got %d", count)
	}
}

func TestEventQueue_DrainBatches(t *testing.T) {
	q := NewEventQueue(16)
	for i := 0; i < 7; i++ {
		q.Observe(uint8(i), uint16(i))
	}
	q.Close()

	var sizes []int
	var ids []uint8
	err := q.Drain(context.Background(), 3, time.Hour, func(batch []Event) error {
		sizes = append(sizes, len(batch))
		for _, ev := range batch {
			ids = append(ids, ev.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Drain returned %v", err)
	}

	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Errorf("Batch sizes mismatch: got %v", sizes)
	}
	for i, id := range ids {
		if id != uint8(i) {
			t.Errorf("Event %d out of order: got 0x%02X", i, id)
		}
	}
}

func TestEventQueue_DrainFlushesOnTicker(t *testing.T) {
	q := NewEventQueue(16)
	q.Observe(0x01, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flushed := make(chan int, 1)
	done := make(chan error, 1)
	go func() {
		done <- q.Drain(ctx, 100, 10*time.Millisecond, func(batch []Event) error {
			flushed <- len(batch)
			return nil
		})
	}()

	select {
	case n := <-flushed:
		if n != 1 {
			t.Errorf("Expected a partial batch of 1, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Partial batch was not flushed by the ticker")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEventQueue_DrainReturnsCallbackError(t *testing.T) {
	q := NewEventQueue(4)
	q.Observe(0x01, 1)
	q.Close()

	errStore := errors.New("store unavailable")
	err := q.Drain(context.Background(), 1, time.Hour, func([]Event) error {
		return errStore
	})
	if !errors.Is(err, errStore) {
		t.Errorf("Expected callback error, got %v", err)
	}
}
