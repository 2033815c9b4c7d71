// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one table update as seen by an observer
type Event struct {
	ID        uint8
	Value     uint16
	Timestamp time.Time
}

// EventQueue decouples table observers from slow consumers. Observe never
// blocks: when the queue is full the event is dropped and counted. Events
// that are delivered keep the order in which frames were received.
type EventQueue struct {
	events    chan Event
	dropped   atomic.Uint64
	closeOnce sync.Once
	now       func() time.Time
}

// NewEventQueue creates a queue holding at most size pending events
func NewEventQueue(size int) *EventQueue {
	if size < 1 {
		size = 1
	}
	return &EventQueue{
		events: make(chan Event, size),
		now:    time.Now,
	}
}

// Observe enqueues an event. Its signature matches Observer.
func (q *EventQueue) Observe(id uint8, value uint16) {
	select {
	case q.events <- Event{ID: id, Value: value, Timestamp: q.now()}:
	default:
		q.dropped.Add(1)
	}
}

// Events returns the receive side of the queue
func (q *EventQueue) Events() <-chan Event {
	return q.events
}

// Dropped returns the number of events lost to a full queue
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close ends the queue. Observe must not be called afterwards.
func (q *EventQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.events)
	})
}

// Drain delivers queued events to fn in batches of up to batchSize. A partial
// batch is flushed every flushEvery, when the queue is closed, and when ctx
// is cancelled. Drain returns nil once the queue is closed and drained,
// ctx.Err() on cancellation, or the first error from fn.
func (q *EventQueue) Drain(ctx context.Context, batchSize int, flushEvery time.Duration, fn func([]Event) error) error {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushEvery <= 0 {
		flushEvery = time.Second
	}

	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]Event, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := fn(batch)
		batch = make([]Event, 0, batchSize)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if err := flush(); err != nil {
				return err
			}
			return ctx.Err()

		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}

		case ev, ok := <-q.events:
			if !ok {
				return flush()
			}
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
