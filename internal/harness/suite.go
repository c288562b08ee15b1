package harness

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Scenario     string   `json:"scenario"`
	ScenarioPath string   `json:"scenario_path"`
	Errors       []string `json:"errors"`
}

// FindScenarios returns the YAML scenario files under dir, sorted.
// A non-empty filter is a glob matched against the file name without
// its extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Golden files live next to scenarios
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// RunFile loads and runs one scenario file. A scenario that fails to load
// or execute is reported as a failure, not as an error.
func RunFile(path string) (*Scenario, *Result, *ScenarioFailure) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, &ScenarioFailure{
			Scenario:     filepath.Base(path),
			ScenarioPath: path,
			Errors:       []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := Run(scenario)
	if err != nil {
		return scenario, nil, &ScenarioFailure{
			Scenario:     scenario.Name,
			ScenarioPath: path,
			Errors:       []string{fmt.Sprintf("scenario execution failed: %v", err)},
		}
	}

	if !result.Pass {
		return scenario, result, &ScenarioFailure{
			Scenario:     scenario.Name,
			ScenarioPath: path,
			Errors:       result.Errors,
		}
	}
	return scenario, result, nil
}

// RunDir runs every scenario under dir and returns a summary.
//
// For each scenario file:
// 1. Load it, resolving its catalog next to the file
// 2. Run it via harness.Run
// 3. Collect and report results
func RunDir(dir, filter string) (*SuiteResult, error) {
	files, err := FindScenarios(dir, filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{}
	for _, path := range files {
		result.TotalScenarios++
		if _, _, failure := RunFile(path); failure != nil {
			result.Failed++
			result.Failures = append(result.Failures, *failure)
			continue
		}
		result.Passed++
	}

	return result, nil
}
