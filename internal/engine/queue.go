package engine

import "sync"

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeToggle selects or deselects an option.
	EventTypeToggle EventType = iota + 1
	// EventTypeRange changes a filter's selected range.
	EventTypeRange
	// eventTypeSnapshot reads the matrix state inside the loop.
	eventTypeSnapshot
)

// String returns the name used in traces.
func (t EventType) String() string {
	switch t {
	case EventTypeToggle:
		return "toggle"
	case EventTypeRange:
		return "range"
	case eventTypeSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Event is one user interaction.
//
// Toggle events use Target (option name) and Selected; range events use
// Target (filter name), Low and High.
type Event struct {
	Type     EventType
	Target   string
	Selected bool
	Low      float64
	High     float64

	done chan outcome // nil for fire-and-forget events
}

// ToggleEvent builds a toggle event.
func ToggleEvent(option string, selected bool) Event {
	return Event{Type: EventTypeToggle, Target: option, Selected: selected}
}

// RangeEvent builds a range event.
func RangeEvent(filter string, low, high float64) Event {
	return Event{Type: EventTypeRange, Target: filter, Low: low, High: high}
}

type outcome struct {
	entry    TraceEntry
	snapshot Snapshot
	err      error
}

// eventQueue is a thread-safe, unbounded FIFO queue for events.
//
// The signal channel (buffered, size 1) lets the Run loop wait with select
// so that context cancellation is always observed.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: a pending signal already covers this event.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	q.events[0] = Event{} // release the reply channel for GC
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// It is closed when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes waiters. Idempotent.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
