package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`

	// Results holds each scenario's result by scenario name, for golden
	// comparison.
	Results map[string]*Result `json:"-"`
}

// ScenarioFailure is one failed scenario.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns the YAML files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario in dir. A non-empty catalogDir
// replaces each scenario's catalog.
//
// A scenario that fails to load or run counts as failed; the suite keeps
// going.
func RunSuite(dir, catalogDir string) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	suite := &SuiteResult{Results: make(map[string]*Result)}
	for _, path := range paths {
		suite.Total++
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		scenario, err := LoadScenarioWithCatalog(path, catalogDir)
		if err != nil {
			suite.fail(name, path, []string{err.Error()})
			continue
		}
		name = scenario.Name

		result, err := Run(scenario)
		if err != nil {
			suite.fail(name, path, []string{err.Error()})
			continue
		}
		suite.Results[name] = result

		if !result.Pass {
			suite.fail(name, path, result.Errors)
			continue
		}
		suite.Passed++
	}
	return suite, nil
}

// LoadScenarioWithCatalog loads a scenario whose catalog is replaced by
// catalogDir. An empty catalogDir keeps the scenario's own catalog.
func LoadScenarioWithCatalog(path, catalogDir string) (*Scenario, error) {
	if catalogDir == "" {
		return LoadScenario(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	// Point the catalog at the override before validation resolves it.
	return loadScenarioBytes(data, filepath.Dir(path), catalogDir)
}

func (s *SuiteResult) fail(name, path string, errs []string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{Scenario: name, Path: path, Errors: errs})
}
