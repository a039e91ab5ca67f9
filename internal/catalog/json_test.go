package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/ir"
)

func TestDecodeJSON_RoundTripThroughFile(t *testing.T) {
	data, err := json.Marshal(testCatalog())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cat, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, testCatalog(), *cat)
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed", `{`, "decode catalog"},
		{"unknown field", `{"version":"1","definitions":[],"extra":true}`, "unknown field"},
		{"wrong version", `{"version":"0","definitions":[]}`, "unsupported version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeJSON_NilSlices(t *testing.T) {
	cat, err := DecodeJSON(strings.NewReader(`{"version":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, []ir.AnimationDefinition{}, cat.Definitions)
	assert.Equal(t, []ir.Category{}, cat.Categories)
}

func TestLoadJSON_Missing(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open catalog")
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "fxdispatch animation catalog", doc["title"])
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "definitions")
	assert.Contains(t, props, "categories")
	assert.Contains(t, doc["required"], "definitions")
}
