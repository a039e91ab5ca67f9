package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/catalog"
	"github.com/roach88/fxdispatch/internal/compiler"
)

const overlappingCategories = `package fx

category: melee: {
	menu: "melee"
	members: ["Dagger", "Club"]
	layers: target: file: "slash.red"
}

category: thrown: {
	menu: "range"
	members: ["Dagger"]
	layers: target: file: "dagger.throw"
}
`

func TestValidate_Valid(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog is valid")
	assert.NotContains(t, out, "overlap")
}

func TestValidate_InvalidDefinition(t *testing.T) {
	dir := writeCUE(t, map[string]string{"a.cue": `package fx
animation: glow: {
	menu: "range"
	layers: target: {
		file:    "glow.webm"
		opacity: 2
	}
}
`})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed with 1 error(s)")
	assert.Contains(t, out, compiler.ErrOpacityRange)
}

func TestValidate_CompileErrorsAreReported(t *testing.T) {
	dir := writeCUE(t, map[string]string{"a.cue": "package fx\nanimation: x: layers: target: file: \"x.webm\"\n"})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, catalog.ErrCodeMissingMenu)
}

func TestValidate_OverlapWarning(t *testing.T) {
	dir := writeCUE(t, map[string]string{"c.cue": overlappingCategories})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog is valid")
	assert.Contains(t, out, "1 overlap(s):")
	assert.Contains(t, out, "warning:")
}

func TestValidate_JSON(t *testing.T) {
	dir := writeCUE(t, map[string]string{"c.cue": overlappingCategories})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Warnings, 1)
	assert.Equal(t, "dagger", resp.Data.Warnings[0].Name)
	assert.Equal(t, []string{"melee", "thrown"}, resp.Data.Warnings[0].Categories)
}

func TestValidate_MissingDirectory(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), catalog.ErrCodeNotFound)
}
