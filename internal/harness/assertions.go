package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/moa/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []engine.TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s changed=%v", entry.Seq, entry.Type, entry.Target, entry.Changed)
			if entry.Error != "" {
				fmt.Fprintf(&buf, " error=%q", entry.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// matchesEvent reports whether entry is an event on the assertion target,
// optionally restricted to one event type.
func matchesEvent(entry engine.TraceEntry, event, target string) bool {
	if entry.Target != target {
		return false
	}
	return event == "" || entry.Type == event
}

// assertTraceContains checks if the trace contains an event on the target
// that flipped at least the listed options.
func assertTraceContains(trace []engine.TraceEntry, assertion Assertion) error {
	for _, entry := range trace {
		if matchesEvent(entry, assertion.Event, assertion.Target) && containsAll(entry.Changed, assertion.Changed) {
			return nil
		}
	}

	expected := fmt.Sprintf("event on %s", assertion.Target)
	if assertion.Event != "" {
		expected = fmt.Sprintf("%s event on %s", assertion.Event, assertion.Target)
	}
	if len(assertion.Changed) > 0 {
		expected += fmt.Sprintf(" changing %v", assertion.Changed)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first events on each target appear in
// the given order. Events need not be consecutive.
func assertTraceOrder(trace []engine.TraceEntry, assertion Assertion) error {
	// Step 1: Find first position of each expected target
	positions := make(map[string]int)
	for i, entry := range trace {
		for _, target := range assertion.Targets {
			if matchesEvent(entry, assertion.Event, target) && positions[target] == 0 {
				positions[target] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all targets found
	for _, target := range assertion.Targets {
		if positions[target] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all targets present: %v", assertion.Targets),
				Actual:   fmt.Sprintf("missing target: %s", target),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Targets); i++ {
		prev := assertion.Targets[i-1]
		curr := assertion.Targets[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("targets in order: %v", assertion.Targets),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that events on the target appear exactly Count times.
func assertTraceCount(trace []engine.TraceEntry, assertion Assertion) error {
	count := 0
	for _, entry := range trace {
		if matchesEvent(entry, assertion.Event, assertion.Target) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Target),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks the final state of one option or filter using
// subset semantics. Field names are the JSON names of engine.OptionState
// and engine.FilterState.
func assertFinalState(state engine.Snapshot, assertion Assertion) error {
	var (
		entity string
		found  any
	)
	if assertion.Option != "" {
		entity = "option " + assertion.Option
		for _, s := range state.Options {
			if s.Name == assertion.Option {
				found = s
				break
			}
		}
	} else {
		entity = "filter " + assertion.Filter
		for _, s := range state.Filters {
			if s.Name == assertion.Filter {
				found = s
				break
			}
		}
	}

	if found == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: entity + " to exist",
			Actual:   "not found in final state",
		}
	}

	actual, err := toFieldMap(found)
	if err != nil {
		return fmt.Errorf("final_state %s: %w", entity, err)
	}

	// Sort keys for deterministic error reporting
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actual[key]
		if !exists {
			actualValue = zeroField(key)
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s field %q = %v", entity, key, expectedValue),
				Actual:   fmt.Sprintf("%s field %q = %v", entity, key, actualValue),
			}
		}
	}

	return nil
}

// toFieldMap flattens a state struct into its JSON field map.
func toFieldMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// zeroField stands in for omitempty list fields that are absent.
func zeroField(key string) any {
	switch key {
	case "reasons", "excluded":
		return []any{}
	default:
		return nil
	}
}

// stateValuesEqual compares a YAML-decoded expected value with a
// JSON-decoded actual value. Numbers compare as float64; lists compare
// element by element.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if e, ok := toFloat(expected); ok {
		a, ok := toFloat(actual)
		return ok && e == a
	}

	if e, ok := expected.([]any); ok {
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !stateValuesEqual(e[i], a[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// containsAll reports whether actual includes every expected name.
func containsAll(actual, expected []string) bool {
	for _, want := range expected {
		found := false
		for _, got := range actual {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The matrix backs the invariants assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, m *engine.Matrix) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		case AssertInvariants:
			if m == nil {
				err = fmt.Errorf("assertion[%d]: invariants requires a matrix", i)
			} else {
				err = m.CheckInvariants()
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
