package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string              `json:"scenario_name"`
	Session      string              `json:"session,omitempty"`
	CatalogHash  string              `json:"catalog_hash"`
	Trace        []engine.TraceEntry `json:"trace"`
}

// NewTraceSnapshot builds the snapshot of a finished scenario run.
func NewTraceSnapshot(scenario *Scenario, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		Session:      scenario.Session,
		CatalogHash:  result.CatalogHash,
		Trace:        result.Trace,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, lists and maps.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, entry := range s.Trace {
		entryMap := map[string]any{
			"seq":     entry.Seq,
			"type":    entry.Type,
			"target":  entry.Target,
			"changed": entry.Changed,
		}
		if entry.Changed == nil {
			entryMap["changed"] = []string{}
		}
		if entry.Session != "" {
			entryMap["session"] = entry.Session
		}
		if entry.Selected != nil {
			entryMap["selected"] = *entry.Selected
		}
		if entry.Low != nil {
			entryMap["low"] = *entry.Low
		}
		if entry.High != nil {
			entryMap["high"] = *entry.High
		}
		if entry.Error != "" {
			entryMap["error"] = entry.Error
		}
		traceList[i] = entryMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"catalog_hash":  s.CatalogHash,
		"trace":         traceList,
	}
	if s.Session != "" {
		result["session"] = s.Session
	}
	return result
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against the golden file
// named after the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := NewTraceSnapshot(scenario, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
