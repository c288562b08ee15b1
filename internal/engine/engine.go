package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// TraceEntry records one processed event and its effect.
//
// Changed lists the options whose selection or enabled/disabled state
// flipped, in the order they flipped. Low and High hold the effective
// range after clamping and are absent when the filter is unknown.
type TraceEntry struct {
	Seq      int64    `json:"seq"`
	Session  string   `json:"session,omitempty"`
	Type     string   `json:"type"`
	Target   string   `json:"target"`
	Selected *bool    `json:"selected,omitempty"`
	Low      *float64 `json:"low,omitempty"`
	High     *float64 `json:"high,omitempty"`
	Changed  []string `json:"changed"`
	Error    string   `json:"error,omitempty"`
}

// Engine is the single-writer event loop in front of a Matrix.
//
// Thread-safety model:
//   - Toggle(), SetRange(), Snapshot(), Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Apply(): only for hosts that never start Run; the caller serializes
//
// Every mutation of the matrix happens in the Run goroutine, which makes
// the reference-counting protocol safe under concurrent callers.
type Engine struct {
	matrix  *Matrix
	clock   *Clock
	queue   *eventQueue
	session string
	logger  *slog.Logger
	changes *changeRecorder

	stopped  chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	trace []TraceEntry
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the logical clock, e.g. to continue a sequence.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSessionGenerator sets how the session token is generated.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) EngineOption {
	return func(e *Engine) {
		e.session = g.Generate()
	}
}

// New creates an Engine for a built Matrix and registers the engine's
// change recorder as a matrix observer.
func New(m *Matrix, opts ...EngineOption) *Engine {
	e := &Engine{
		matrix:  m,
		clock:   NewClock(),
		queue:   newEventQueue(),
		logger:  slog.Default(),
		changes: &changeRecorder{},
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.session == "" {
		e.session = UUIDv7Generator{}.Generate()
	}
	e.logger = e.logger.With("session", e.session)
	m.AddObserver(e.changes)
	return e
}

// Session returns the session token stamped on every trace entry.
func (e *Engine) Session() string { return e.session }

// Matrix returns the wrapped matrix. Reading it while Run is active is a
// data race; use Snapshot instead.
func (e *Engine) Matrix() *Matrix { return e.matrix }

// Enqueue submits an event without waiting for it.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	ev.done = nil
	return e.queue.Enqueue(ev)
}

// Toggle selects or deselects an option and waits for the result.
func (e *Engine) Toggle(ctx context.Context, option string, selected bool) (TraceEntry, error) {
	out, err := e.submit(ctx, ToggleEvent(option, selected))
	if err != nil {
		return TraceEntry{}, err
	}
	return out.entry, out.err
}

// SetRange changes a filter's range and waits for the result.
func (e *Engine) SetRange(ctx context.Context, filter string, low, high float64) (TraceEntry, error) {
	out, err := e.submit(ctx, RangeEvent(filter, low, high))
	if err != nil {
		return TraceEntry{}, err
	}
	return out.entry, out.err
}

// Snapshot reads the matrix state from inside the loop, so it observes a
// state between two events and never one in the middle of an event.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	out, err := e.submit(ctx, Event{Type: eventTypeSnapshot})
	if err != nil {
		return Snapshot{}, err
	}
	return out.snapshot, nil
}

// submit enqueues an event with a reply channel and waits for the Run loop.
func (e *Engine) submit(ctx context.Context, ev Event) (outcome, error) {
	ev.done = make(chan outcome, 1)
	if !e.queue.Enqueue(ev) {
		return outcome{}, ErrEngineStopped
	}
	select {
	case out := <-ev.done:
		return out, nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	case <-e.stopped:
		// Run may have processed the event just before returning.
		select {
		case out := <-ev.done:
			return out, nil
		default:
			return outcome{}, ErrEngineStopped
		}
	}
}

// Run starts the single-writer event loop.
// Blocks until the context is cancelled or Stop() is called; events queued
// before Stop are still processed.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopOnce.Do(func() { close(e.stopped) })
	e.logger.Info("engine starting")

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			out := e.process(event)
			if event.done != nil {
				event.done <- out
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed with the queue, so this also
			// fires on Stop.
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue, which makes Run return once it is drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Apply processes one event synchronously on the caller's goroutine.
// For single-threaded hosts that never call Run.
func (e *Engine) Apply(ev Event) (TraceEntry, error) {
	out := e.process(ev)
	return out.entry, out.err
}

// Trace returns a copy of every processed event in seq order.
func (e *Engine) Trace() []TraceEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TraceEntry, len(e.trace))
	copy(out, e.trace)
	return out
}

// process applies an event to the matrix.
// CRITICAL: Called only from Run() (or Apply) - single-writer guarantee.
func (e *Engine) process(ev Event) outcome {
	if ev.Type == eventTypeSnapshot {
		return outcome{snapshot: e.matrix.Snapshot()}
	}

	seq := e.clock.Next()
	entry := TraceEntry{
		Seq:     seq,
		Session: e.session,
		Type:    ev.Type.String(),
		Target:  ev.Target,
	}

	e.changes.reset()
	var err error
	switch ev.Type {
	case EventTypeToggle:
		selected := ev.Selected
		entry.Selected = &selected
		e.logger.Debug("processing toggle", "seq", seq, "option", ev.Target, "selected", selected)
		err = e.matrix.Toggle(ev.Target, selected)

	case EventTypeRange:
		if f, ok := e.matrix.Filter(ev.Target); ok {
			low, high := f.Clamp(ev.Low, ev.High)
			entry.Low, entry.High = &low, &high
		}
		e.logger.Debug("processing range", "seq", seq, "filter", ev.Target, "low", ev.Low, "high", ev.High)
		err = e.matrix.SetRange(ev.Target, ev.Low, ev.High)

	default:
		err = fmt.Errorf("unknown event type: %d", ev.Type)
	}
	entry.Changed = e.changes.take()

	if err != nil {
		entry.Error = err.Error()
		e.logger.Warn("event rejected", "seq", seq, "type", entry.Type, "target", ev.Target, "error", err)
	} else {
		e.logger.Info("event applied", "seq", seq, "type", entry.Type, "target", ev.Target, "changed", len(entry.Changed))
	}

	e.mu.Lock()
	e.trace = append(e.trace, entry)
	e.mu.Unlock()

	return outcome{entry: entry, err: err}
}

// changeRecorder collects the names of options that flipped during one
// event, first flip first.
type changeRecorder struct {
	names []string
	seen  map[string]struct{}
}

func (r *changeRecorder) reset() {
	r.names = make([]string, 0, 4)
	r.seen = make(map[string]struct{})
}

func (r *changeRecorder) take() []string {
	out := r.names
	if out == nil {
		out = []string{}
	}
	r.names = nil
	r.seen = nil
	return out
}

// OptionChanged implements Observer.
func (r *changeRecorder) OptionChanged(s OptionState) {
	if r.seen == nil {
		return // outside of an engine event
	}
	if _, ok := r.seen[s.Name]; ok {
		return
	}
	r.seen[s.Name] = struct{}{}
	r.names = append(r.names, s.Name)
}

// FilterChanged implements Observer.
func (r *changeRecorder) FilterChanged(FilterState) {}
