package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenarios copies the scenario fixtures so a test can rewrite goldens.
func copyScenarios(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(testScenarios, "firebolt_hit_and_miss.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "firebolt_hit_and_miss.yaml"), src, 0o644))
	return dir
}

func absScene(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(testScene)
	require.NoError(t, err)
	return p
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}

func TestTestCommandNonExistentCatalogDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/catalog", testScenarios)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "catalog directory not found")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), testCatalog, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_PassesWithGolden(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), testCatalog, testScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ firebolt_hit_and_miss")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), testCatalog, testScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Total)
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), testCatalog, testScenarios, "--filter", "template-*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := copyScenarios(t)
	// The copied scenario's relative scene path no longer resolves.
	scenario := filepath.Join(dir, "firebolt_hit_and_miss.yaml")
	data, err := os.ReadFile(scenario)
	require.NoError(t, err)
	data = []byte(replaceLine(string(data), "scene: ", "scene: "+absScene(t)))
	require.NoError(t, os.WriteFile(scenario, data, 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), testCatalog, dir, "--update")
	require.NoError(t, err, out)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "firebolt_hit_and_miss.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(testScenarios, "golden", "firebolt_hit_and_miss.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// A stale golden fails the run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "firebolt_hit_and_miss.golden"), []byte("stale\n"), 0o644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), testCatalog, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := copyScenarios(t)
	scenario := filepath.Join(dir, "firebolt_hit_and_miss.yaml")
	data, err := os.ReadFile(scenario)
	require.NoError(t, err)
	s := replaceLine(string(data), "scene: ", "scene: "+absScene(t))
	s = replaceLine(s, "      rule: ", "      rule: category")
	require.NoError(t, os.WriteFile(scenario, []byte(s), 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), testCatalog, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ firebolt_hit_and_miss")
	assert.Contains(t, out, "expected rule category, got exact_name")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

// replaceLine swaps the first line starting with prefix.
func replaceLine(s, prefix, line string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			lines[i] = line
			break
		}
	}
	return strings.Join(lines, "\n")
}
