package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/roach88/moa/internal/compiler"
	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/store"
	"github.com/roach88/moa/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fresh logical clock and a fixed session token.
type Harness struct {
	engine *engine.Engine
	matrix *engine.Matrix
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// The catalog is compiled, imported into a fresh in-memory store and read
// back before the matrix is built, so a scenario exercises the same path
// as a catalog served from a database.
//
// Execution flow:
// 1. Compile the catalog directory
// 2. Round-trip it through an in-memory store
// 3. Build the matrix and wrap it in an engine
// 4. Apply setup steps, then flow steps with expect validation
// 5. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	catalog, err := compiler.LoadDir(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	hash, err := st.WriteCatalog(ctx, scenario.Name, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to import catalog: %w", err)
	}
	stored, err := st.ReadCatalog(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog back: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	m, err := engine.Build(stored, engine.WithBuildLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build matrix: %w", err)
	}

	h := &Harness{
		engine: engine.New(m,
			engine.WithLogger(logger),
			engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		),
		matrix: m,
		logger: logger,
	}

	result := NewResult()
	result.CatalogHash = hash

	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.executeFlow(scenario.Flow, result)

	result.Trace = h.engine.Trace()
	result.State = m.Snapshot()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, m) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup applies setup steps. Any rejected step aborts the run.
func (h *Harness) executeSetup(setup []Step) error {
	for i, step := range setup {
		entry, err := h.engine.Apply(stepEvent(step))
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		h.logger.Info("setup step completed", "step", i, "seq", entry.Seq, "target", entry.Target)
	}
	return nil
}

// executeFlow applies flow steps and validates their expect clauses.
// Mismatches are recorded on the result; the flow always runs to the end.
func (h *Harness) executeFlow(flow []Step, result *Result) {
	for i, step := range flow {
		entry, err := h.engine.Apply(stepEvent(step))

		for _, msg := range checkExpect(step.Expect, entry, err) {
			result.AddError(fmt.Sprintf("flow[%d] %s %s: %s", i, entry.Type, entry.Target, msg))
		}

		if err := h.matrix.CheckInvariants(); err != nil {
			result.AddError(fmt.Sprintf("flow[%d]: %v", i, err))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"seq", entry.Seq,
			"target", entry.Target,
			"changed", len(entry.Changed),
		)
	}
}

// checkExpect compares one step outcome against its expect clause.
func checkExpect(expect *ExpectClause, entry engine.TraceEntry, err error) []string {
	var msgs []string

	wantErr := ""
	if expect != nil {
		wantErr = expect.Error
	}
	switch {
	case wantErr == "" && err != nil:
		msgs = append(msgs, fmt.Sprintf("unexpected error: %v", err))
	case wantErr != "" && err == nil:
		msgs = append(msgs, fmt.Sprintf("expected error containing %q, got success", wantErr))
	case wantErr != "" && !strings.Contains(err.Error(), wantErr):
		msgs = append(msgs, fmt.Sprintf("expected error containing %q, got %q", wantErr, err.Error()))
	}

	if expect != nil && expect.Changed != nil && !slices.Equal(expect.Changed, entry.Changed) {
		msgs = append(msgs, fmt.Sprintf("expected changed %v, got %v", expect.Changed, entry.Changed))
	}
	return msgs
}

// stepEvent converts a scenario step into an engine event.
func stepEvent(step Step) engine.Event {
	if step.Toggle != "" {
		selected := true
		if step.Selected != nil {
			selected = *step.Selected
		}
		return engine.ToggleEvent(step.Toggle, selected)
	}

	low, high := math.NaN(), math.NaN()
	if step.Low != nil {
		low = *step.Low
	}
	if step.High != nil {
		high = *step.High
	}
	return engine.RangeEvent(step.Range, low, high)
}
