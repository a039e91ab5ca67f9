package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/firebolt_hit_and_miss.yaml")
	require.NoError(t, err)

	scenario.Steps[0].Expect.Rule = "category"

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected rule category, got exact_name")
}

func TestRun_AssertionFailureIncludesTrace(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/firebolt_hit_and_miss.yaml")
	require.NoError(t, err)

	scenario.Assertions = []Assertion{{Type: AssertBatchCount, Count: 2}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: batch_count")
	assert.Contains(t, result.Errors[0], "0 batch d-1 origin=bolt-1 placements=5")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/delay_and_retraction.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, FormatTrace(first.Trace), FormatTrace(second.Trace))
}

func TestRun_MissingCatalog(t *testing.T) {
	scenario := &Scenario{
		Name:    "broken",
		Catalog: filepath.Join(t.TempDir(), "nope"),
		Scene:   "testdata/scenes/arena.yaml",
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestRunSuite(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios", "")
	require.NoError(t, err)

	assert.Equal(t, suite.Total, suite.Passed, "failures: %+v", suite.Failures)
	assert.Zero(t, suite.Failed)
	assert.Contains(t, suite.Results, "template_deferral")
}

func TestRunSuite_CatalogOverride(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios", "testdata/catalog")
	require.NoError(t, err)
	assert.Zero(t, suite.Failed, "failures: %+v", suite.Failures)
}

func TestRunSuite_EmptyDir(t *testing.T) {
	_, err := RunSuite(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}
