package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/ir"
)

func TestAnalyzeOverlaps_NoCategories(t *testing.T) {
	warnings := AnalyzeOverlaps(nil)
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeOverlaps_Disjoint(t *testing.T) {
	warnings := AnalyzeOverlaps([]ir.Category{
		{Name: "melee", Menu: ir.MenuMelee, Members: []string{"longsword", "dagger"}},
		{Name: "ranged", Menu: ir.MenuRange, Members: []string{"longbow"}},
	})
	assert.Empty(t, warnings)
}

func TestAnalyzeOverlaps_SameMenuIsInfo(t *testing.T) {
	warnings := AnalyzeOverlaps([]ir.Category{
		{Name: "melee", Menu: ir.MenuMelee, Members: []string{"unarmedstrike", "dagger"}},
		{Name: "monk", Menu: ir.MenuMelee, Members: []string{"unarmedstrike"}},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, "unarmedstrike", warnings[0].Name)
	assert.Equal(t, []string{"melee", "monk"}, warnings[0].Categories)
	assert.Equal(t, "info", warnings[0].Level)
}

func TestAnalyzeOverlaps_DifferentMenuIsWarning(t *testing.T) {
	warnings := AnalyzeOverlaps([]ir.Category{
		{Name: "melee", Menu: ir.MenuMelee, Members: []string{"dagger"}},
		{Name: "ranged", Menu: ir.MenuRange, Members: []string{"handaxe", "dagger"}},
		{Name: "thrown", Menu: ir.MenuRange, Members: []string{"handaxe"}},
	})

	require.Len(t, warnings, 2)
	assert.Equal(t, "dagger", warnings[0].Name)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, `"melee" (melee) wins`)

	assert.Equal(t, "handaxe", warnings[1].Name)
	assert.Equal(t, "info", warnings[1].Level)
}

func TestAnalyzeOverlaps_RepeatedWithinCategory(t *testing.T) {
	warnings := AnalyzeOverlaps([]ir.Category{
		{Name: "melee", Menu: ir.MenuMelee, Members: []string{"dagger", "dagger"}},
	})
	assert.Empty(t, warnings)
}
