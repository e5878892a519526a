// Package queue provides the shared FIFO of pending work units. It is the
// single mutable structure shared between the dispatcher and its workers:
// workers enqueue fan-out units concurrently while the dispatcher dequeues
// with a bounded wait so it can periodically re-check for run completion.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wehubfusion/Daedalus/pkg/station"
)

// Unit is one pending (station, item) pair. Units are ephemeral: created by
// seeding or fan-out and consumed exactly once by a worker.
type Unit struct {
	// ID identifies the unit in logs and failure reports.
	ID uuid.UUID

	// Station is the destination that will process the item.
	Station *station.Station

	// Item is the payload. It is nil for seeding units delivered to entry
	// stations.
	Item any
}

// NewUnit creates a work unit for the given destination and payload.
func NewUnit(st *station.Station, item any) Unit {
	return Unit{ID: uuid.New(), Station: st, Item: item}
}

// Queue is an unbounded multi-producer FIFO with a bounded-wait dequeue.
// Unbounded on purpose: workers enqueue fan-out units while holding an
// admission slot, so a bounded queue could deadlock a saturated pool.
type Queue struct {
	mu     sync.Mutex
	units  []Unit
	notify chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends a unit to the tail of the queue and wakes a waiting
// dequeuer, if any. It never blocks.
func (q *Queue) Enqueue(u Unit) {
	q.mu.Lock()
	q.units = append(q.units, u)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the unit at the head of the queue, waiting up
// to wait for one to arrive. It returns false when the wait elapses or the
// context is cancelled with the queue still empty.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (Unit, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if u, ok := q.pop(); ok {
			return u, true
		}

		select {
		case <-q.notify:
			// Re-check; another consumer may have raced us to the unit.
		case <-timer.C:
			// Final check so a unit enqueued while the notification token
			// was consumed elsewhere is not stranded past the deadline.
			return q.pop()
		case <-ctx.Done():
			return q.pop()
		}
	}
}

// Len returns the number of pending units.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}

func (q *Queue) pop() (Unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.units) == 0 {
		return Unit{}, false
	}
	u := q.units[0]
	q.units = q.units[1:]
	if len(q.units) == 0 {
		// Release the backing array so long runs do not pin every payload
		// ever enqueued.
		q.units = nil
	}
	return u, true
}
