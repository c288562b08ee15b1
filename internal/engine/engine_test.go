package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEngine runs an engine over the car catalog until the test ends.
func startEngine(t *testing.T) (*Engine, <-chan error) {
	t.Helper()
	e := New(buildCar(t),
		WithLogger(quietLogger()),
		WithSessionGenerator(NewFixedGenerator("session-1")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-e.stopped
	})
	return e, done
}

func TestEngine_ToggleRecordsTrace(t *testing.T) {
	e, _ := startEngine(t)
	ctx := context.Background()

	entry, err := e.Toggle(ctx, "petrol", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Seq)
	assert.Equal(t, "session-1", entry.Session)
	assert.Equal(t, "toggle", entry.Type)
	require.NotNil(t, entry.Selected)
	assert.True(t, *entry.Selected)
	assert.Equal(t, []string{"petrol", "diesel", "electric"}, entry.Changed)

	entry, err = e.Toggle(ctx, "diesel", true)
	require.ErrorIs(t, err, ErrOptionDisabled)
	assert.Equal(t, int64(2), entry.Seq)
	assert.Empty(t, entry.Changed)
	assert.NotEmpty(t, entry.Error)

	trace := e.Trace()
	require.Len(t, trace, 2)
	assert.Equal(t, int64(1), trace[0].Seq)
	assert.Equal(t, int64(2), trace[1].Seq)
}

func TestEngine_SetRangeRecordsEffectiveRange(t *testing.T) {
	e, _ := startEngine(t)

	entry, err := e.SetRange(context.Background(), "weight", 300, -50)
	require.NoError(t, err)
	require.NotNil(t, entry.Low)
	require.NotNil(t, entry.High)
	assert.Equal(t, 0.0, *entry.Low)
	assert.Equal(t, 300.0, *entry.High)
	assert.Equal(t, []string{"electric"}, entry.Changed)

	_, err = e.SetRange(context.Background(), "length", 0, 1)
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestEngine_Snapshot(t *testing.T) {
	e, _ := startEngine(t)
	ctx := context.Background()

	_, err := e.Toggle(ctx, "manual", true)
	require.NoError(t, err)

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	states := make(map[string]OptionState)
	for _, s := range snap.Options {
		states[s.Name] = s
	}
	assert.True(t, states["manual"].Selected)
	assert.True(t, states["automatic"].Disabled)
	assert.Len(t, e.Trace(), 1, "snapshots are not traced")
}

func TestEngine_ConcurrentTogglesAreSerialized(t *testing.T) {
	e, _ := startEngine(t)
	ctx := context.Background()

	const goroutines = 16
	const perGoroutine = 50
	names := []string{"petrol", "diesel", "electric", "manual", "automatic", "leather"}

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				name := names[(g+i)%len(names)]
				_, err := e.Toggle(ctx, name, (g+i)%3 != 0)
				if err != nil && !errors.Is(err, ErrOptionDisabled) {
					t.Errorf("toggle %s: %v", name, err)
				}
			}
		}(g)
	}
	wg.Wait()

	trace := e.Trace()
	require.Len(t, trace, goroutines*perGoroutine)
	for i, entry := range trace {
		assert.Equal(t, int64(i+1), entry.Seq)
	}

	// The loop is idle once every Toggle returned; read through it anyway.
	_, err := e.Snapshot(ctx)
	require.NoError(t, err)
	e.Stop()
	<-e.stopped
	require.NoError(t, e.Matrix().CheckInvariants())
}

func TestEngine_StopDrainsQueuedEvents(t *testing.T) {
	e := New(buildCar(t), WithLogger(quietLogger()))

	for i := 0; i < 5; i++ {
		require.True(t, e.Enqueue(ToggleEvent("leather", i%2 == 0)))
	}
	e.Stop()
	assert.False(t, e.Enqueue(ToggleEvent("leather", true)))

	require.NoError(t, e.Run(context.Background()))
	assert.Len(t, e.Trace(), 5)
	assert.True(t, mustOption(t, e.Matrix(), "leather").Selected())

	_, err := e.Toggle(context.Background(), "leather", false)
	assert.ErrorIs(t, err, ErrEngineStopped)
}

func TestEngine_RunReturnsOnCancel(t *testing.T) {
	e := New(buildCar(t), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err := e.Toggle(context.Background(), "petrol", true)
	assert.ErrorIs(t, err, ErrEngineStopped)
}

func TestEngine_SubmitHonoursContext(t *testing.T) {
	// No Run loop: the event is never processed.
	e := New(buildCar(t), WithLogger(quietLogger()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Toggle(ctx, "petrol", true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_ApplyIsSynchronous(t *testing.T) {
	e := New(buildCar(t),
		WithLogger(quietLogger()),
		WithClock(NewClockAt(10)),
	)

	entry, err := e.Apply(ToggleEvent("automatic", true))
	require.NoError(t, err)
	assert.Equal(t, int64(11), entry.Seq)
	assert.Equal(t, []string{"automatic", "manual"}, entry.Changed)
	assert.Len(t, e.Session(), 36, "default session token is a UUID")

	entry, err = e.Apply(Event{Type: EventType(99), Target: "x"})
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("unknown event type: %d", 99), entry.Error)
}
