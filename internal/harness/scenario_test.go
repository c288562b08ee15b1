package harness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
catalog: `+carCatalogDir()+`
session: s-1
setup:
  - toggle: leather
flow:
  - toggle: petrol
    selected: false
    expect:
      changed: []
  - range: weight
    low: 10
assertions:
  - type: trace_contains
    target: petrol
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "s-1", scenario.Session)
	assert.Equal(t, carCatalogDir(), scenario.Catalog)
	require.Len(t, scenario.Setup, 1)
	require.Len(t, scenario.Flow, 2)
	assert.Equal(t, "petrol", scenario.Flow[0].Toggle)
	require.NotNil(t, scenario.Flow[0].Selected)
	assert.False(t, *scenario.Flow[0].Selected)
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.NotNil(t, scenario.Flow[0].Expect.Changed, "an explicit empty list is kept")
	assert.Equal(t, "weight", scenario.Flow[1].Range)
	assert.Equal(t, 10.0, *scenario.Flow[1].Low)
	assert.Nil(t, scenario.Flow[1].High)
}

func TestLoadScenario_RelativeCatalog(t *testing.T) {
	path := projectRoot() + "/testdata/scenarios/petrol_filter.yaml"

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, carCatalogDir(), scenario.Catalog)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "typo.yaml", `
name: typo
description: d
catalog: `+carCatalogDir()+`
flow:
  - toggle: petrol
assertion:
  - type: invariants
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	catalog := carCatalogDir()
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing name", "description: d\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: invariants}]", "name is required"},
		{"missing description", "name: n\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: invariants}]", "description is required"},
		{"empty flow", "name: n\ndescription: d\ncatalog: %s\nflow: []\nassertions: [{type: invariants}]", "flow list is required"},
		{"no assertions", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a}]", "assertions list is required"},
		{"empty step", "name: n\ndescription: d\ncatalog: %s\nflow: [{}]\nassertions: [{type: invariants}]", "flow[0]: one of toggle or range is required"},
		{"both kinds", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a, range: w}]\nassertions: [{type: invariants}]", "mutually exclusive"},
		{"low on toggle", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a, low: 1}]\nassertions: [{type: invariants}]", "only valid with range"},
		{"selected on range", "name: n\ndescription: d\ncatalog: %s\nflow: [{range: w, selected: true}]\nassertions: [{type: invariants}]", "only valid with toggle"},
		{"expect in setup", "name: n\ndescription: d\ncatalog: %s\nsetup: [{toggle: a, expect: {error: x}}]\nflow: [{toggle: a}]\nassertions: [{type: invariants}]", "setup[0]: expect is not allowed"},
		{"unknown assertion", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: bogus}]", "unknown assertion type"},
		{"bad event", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: trace_count, target: a, event: click}]", "event must be toggle or range"},
		{"order without targets", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: trace_order}]", "targets list is required"},
		{"final_state both", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: final_state, option: a, filter: w, expect: {x: 1}}]", "exactly one of option or filter"},
		{"final_state no expect", "name: n\ndescription: d\ncatalog: %s\nflow: [{toggle: a}]\nassertions: [{type: final_state, option: a}]", "expect is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeScenario(t, dir, "s.yaml", fmt.Sprintf(tt.body, catalog))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_CatalogNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "s.yaml", `
name: n
description: d
catalog: missing
flow: [{toggle: a}]
assertions: [{type: invariants}]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog directory not found")
}
