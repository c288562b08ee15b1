package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines an interaction scenario.
// Scenarios replay a sequence of toggles and range changes against a
// catalog and assert on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the catalog directory (CUE, YAML or HCL sources).
	// Relative paths resolve against the scenario file location.
	Catalog string `yaml:"catalog"`

	// Setup contains steps applied before the main flow.
	// Setup steps must succeed; their expect clauses are not allowed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main interaction sequence.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state, invariants
	Assertions []Assertion `yaml:"assertions"`

	// Session is an optional fixed session token for deterministic tests.
	// If empty, defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`
}

// Step is one user interaction: either a toggle or a range change.
type Step struct {
	// Toggle names the option to select or deselect.
	Toggle string `yaml:"toggle,omitempty"`

	// Selected is the requested selection for Toggle. Defaults to true.
	Selected *bool `yaml:"selected,omitempty"`

	// Range names the filter whose range changes.
	Range string `yaml:"range,omitempty"`

	// Low and High are the requested bounds for Range. A missing bound
	// means the filter's full-range bound.
	Low  *float64 `yaml:"low,omitempty"`
	High *float64 `yaml:"high,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed and its changes are not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of one step.
type ExpectClause struct {
	// Error is a substring of the expected error. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Changed lists, in order, the options whose state should flip.
	// If nil, changes are not checked.
	Changed []string `yaml:"changed,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Event type on Target appears in the trace
	// - "trace_order": the first events on Targets appear in order
	// - "trace_count": events on Target appear exactly Count times
	// - "final_state": the final state of Option or Filter matches Expect
	// - "invariants": the final matrix passes CheckInvariants
	Type string `yaml:"type"`

	// Event optionally restricts trace assertions to "toggle" or "range".
	Event string `yaml:"event,omitempty"`

	// Target is the option or filter name (trace_contains, trace_count).
	Target string `yaml:"target,omitempty"`

	// Changed requires the matching event to have flipped these options
	// (trace_contains, subset match).
	Changed []string `yaml:"changed,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Targets is the expected order (trace_order).
	Targets []string `yaml:"targets,omitempty"`

	// Option or Filter selects the entity for final_state.
	Option string `yaml:"option,omitempty"`
	Filter string `yaml:"filter,omitempty"`

	// Expect contains expected state fields (final_state).
	// Subset match: only the listed fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertInvariants    = "invariants"
)

// LoadScenario reads and parses a scenario YAML file.
// The catalog path resolves against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	info, err := os.Stat(s.Catalog)
	if os.IsNotExist(err) {
		return fmt.Errorf("catalog directory not found: %s", s.Catalog)
	}
	if err == nil && !info.IsDir() {
		return fmt.Errorf("catalog is not a directory: %s", s.Catalog)
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep requires exactly one of toggle and range.
func validateStep(step Step) error {
	switch {
	case step.Toggle == "" && step.Range == "":
		return fmt.Errorf("one of toggle or range is required")
	case step.Toggle != "" && step.Range != "":
		return fmt.Errorf("toggle and range are mutually exclusive")
	case step.Toggle != "" && (step.Low != nil || step.High != nil):
		return fmt.Errorf("low/high are only valid with range")
	case step.Range != "" && step.Selected != nil:
		return fmt.Errorf("selected is only valid with toggle")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Event != "" && a.Event != "toggle" && a.Event != "range" {
		return fmt.Errorf("assertions[%d]: event must be toggle or range, got %q", index, a.Event)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Targets) == 0 {
			return fmt.Errorf("assertions[%d]: targets list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if (a.Option == "") == (a.Filter == "") {
			return fmt.Errorf("assertions[%d]: exactly one of option or filter is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertInvariants:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
