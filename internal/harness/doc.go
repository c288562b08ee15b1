// Package harness runs interaction scenarios against a configurator matrix.
//
// A scenario names a catalog directory, replays a sequence of toggles and
// range changes through an engine, and validates the resulting trace and
// final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: ../catalogs/car-yaml
//	session: test-session-1
//	setup:
//	  - toggle: leather
//	flow:
//	  - toggle: petrol
//	    expect:
//	      changed: [petrol, diesel, electric]
//	  - toggle: diesel
//	    expect:
//	      error: option is disabled
//	  - range: weight
//	    low: 200
//	    high: 400
//	assertions:
//	  - type: trace_contains
//	    target: weight
//	    changed: [petrol]
//	  - type: final_state
//	    option: petrol
//	    expect: { selected: false, disabled: true, incompatibility_count: 1 }
//	  - type: invariants
//
// A toggle step selects by default; "selected: false" deselects. A range
// step with a missing bound uses the filter's full-range bound.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: an event on a target appears, optionally flipping given options
//   - trace_order: first events on targets appear in the given order
//   - trace_count: events on a target appear exactly N times
//   - final_state: an option or filter state matches expected fields
//   - invariants: the final matrix passes CheckInvariants
//
// Every flow step is also followed by an invariant check.
//
// # Deterministic Testing
//
// Each scenario runs on a fresh matrix with a fresh logical clock and a
// fixed session token (scenario.session, or "test-session-default"), so
// the same scenario always produces a byte-identical trace for golden
// comparison. The catalog is imported into an in-memory SQLite store and
// read back before the matrix is built.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/petrol_filter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
