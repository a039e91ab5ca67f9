package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFieldNaming(t *testing.T) {
	rec := ActionRecord{
		SystemID:              "dnd5e",
		NormalizedName:        "firebolt",
		AllTargets:            []TokenRef{"t1"},
		HitTargets:            []TokenRef{"t1"},
		IsActiveEffectTrigger: true,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"system_id"`)
	assert.Contains(t, string(data), `"normalized_name"`)
	assert.Contains(t, string(data), `"all_targets"`)
	assert.Contains(t, string(data), `"hit_targets"`)
	assert.Contains(t, string(data), `"is_active_effect_trigger"`)

	assert.NotContains(t, string(data), `"systemId"`)
	assert.NotContains(t, string(data), `"normalizedName"`)
}

func TestActionRecord_IsHit(t *testing.T) {
	rec := ActionRecord{
		AllTargets: []TokenRef{"a", "b", "c"},
		HitTargets: []TokenRef{"b"},
	}
	assert.False(t, rec.IsHit("a"))
	assert.True(t, rec.IsHit("b"))
	assert.False(t, rec.IsHit("zzz"))
}

func TestAnimationDefinition_IsTemplateAnimation(t *testing.T) {
	tests := []struct {
		name   string
		menu   MenuKind
		preset PresetType
		want   bool
	}{
		{"templatefx", MenuTemplateFX, "", true},
		{"proToTemp preset", MenuPreset, PresetProToTemp, true},
		{"thunderwave preset", MenuPreset, PresetThunderwave, true},
		{"teleport preset", MenuPreset, PresetTeleportation, false},
		{"ranged", MenuRange, "", false},
		{"proToTemp on non-preset menu", MenuRange, PresetProToTemp, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := AnimationDefinition{Menu: tt.menu, PresetType: tt.preset}
			assert.Equal(t, tt.want, d.IsTemplateAnimation())
		})
	}
}

func TestLayers_Count(t *testing.T) {
	assert.Equal(t, 0, Layers{}.Count())
	assert.Equal(t, 2, Layers{Source: &LayerSpec{}, Target: &LayerSpec{}}.Count())
}

func TestPhaseRank_Order(t *testing.T) {
	assert.Less(t, PhaseRank(PhaseOverlay), PhaseRank(PhaseSource))
	assert.Less(t, PhaseRank(PhaseSource), PhaseRank(PhaseSecondary))
	assert.Less(t, PhaseRank(PhaseSecondary), PhaseRank(PhaseTarget))
}

func TestPlacement_FadeOutOmitted(t *testing.T) {
	data, err := json.Marshal(Placement{Phase: PhaseTarget})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"fade_out_ms"`)

	ms := 300
	data, err = json.Marshal(Placement{Phase: PhaseTarget, FadeOutMs: &ms})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fade_out_ms":300`)
}

func TestPlacement_TargetToken(t *testing.T) {
	attached := Placement{AttachTo: "t1", Location: Location{Kind: LocationToken, Token: "t2"}}
	assert.Equal(t, TokenRef("t1"), attached.TargetToken())

	located := Placement{Location: Location{Kind: LocationMissSpot, Token: "t3"}}
	assert.Equal(t, TokenRef("t3"), located.TargetToken())
}
