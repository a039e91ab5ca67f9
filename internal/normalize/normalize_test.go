package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/ir"
)

func fixedOrigin(id string) Option {
	return WithOriginGenerator(func() string { return id })
}

func makeDnd5eEvent(flavor string) Event {
	return Event{
		System:    "dnd5e",
		UserID:    "user-1",
		MessageID: "msg-1",
		SceneID:   "scene-1",
		Payload: map[string]any{
			"item": map[string]any{
				"uuid":       "Item.fb",
				"name":       "Fire Bolt",
				"has_attack": true,
			},
			"token":   "src",
			"targets": []any{"t1", "t2"},
			"flavor":  flavor,
		},
	}
}

func TestNormalize_Dnd5eAttack(t *testing.T) {
	n := New("user-1")

	rec, err := n.Normalize(makeDnd5eEvent("Fire Bolt - Attack Roll"))
	require.NoError(t, err)

	assert.Equal(t, "dnd5e", rec.SystemID)
	assert.Equal(t, "firebolt", rec.NormalizedName)
	assert.Equal(t, "Item.fb", rec.Origin)
	assert.Equal(t, ir.RollPhaseAttack, rec.RollPhase)
	assert.Equal(t, ir.TokenRef("src"), rec.Source)
	assert.Equal(t, []ir.TokenRef{"t1", "t2"}, rec.AllTargets)
	assert.Equal(t, []ir.TokenRef{"t1", "t2"}, rec.HitTargets)
	assert.Equal(t, "scene-1", rec.SceneID)
	assert.Equal(t, "msg-1", rec.MessageID)
}

func TestNormalize_NotApplicable(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"other user", func() Event { ev := makeDnd5eEvent(""); ev.UserID = "user-2"; return ev }()},
		{"long rest", makeDnd5eEvent("Long Rest")},
		{"missing item", Event{System: "dnd5e", UserID: "user-1", Payload: map[string]any{"token": "src"}}},
		{"missing source", Event{System: "dnd5e", UserID: "user-1", Payload: map[string]any{
			"item": map[string]any{"name": "Dagger"},
		}}},
		{"malformed payload", Event{System: "dnd5e", UserID: "user-1", Payload: map[string]any{
			"targets": "not-a-list",
		}}},
		{"unknown wfrp kind", Event{System: "wfrp4e", UserID: "user-1", Payload: map[string]any{"kind": "dance"}}},
	}
	n := New("user-1")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.ev)
			require.Error(t, err)
			assert.True(t, IsNotApplicable(err), "got %v", err)
			assert.True(t, errors.Is(err, ErrNotApplicable))
		})
	}
}

func TestNormalize_EmptyLocalUserAcceptsAll(t *testing.T) {
	n := New("")
	ev := makeDnd5eEvent("")
	ev.UserID = "anyone"

	_, err := n.Normalize(ev)
	require.NoError(t, err)
}

func TestNormalize_OriginFallback(t *testing.T) {
	n := New("", fixedOrigin("generated-origin"))
	ev := makeDnd5eEvent("")
	ev.Payload["item"] = map[string]any{"name": "Dagger"}

	rec, err := n.Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, "generated-origin", rec.Origin)
}

func TestNormalize_MidiHitPartition(t *testing.T) {
	n := New("")
	ev := Event{
		System: "midi-qol",
		Payload: map[string]any{
			"item":        map[string]any{"uuid": "Item.bow", "name": "Longbow", "has_attack": true},
			"token_id":    "src",
			"targets":     []any{"a", "b", "c"},
			"hit_targets": []any{"c", "zzz", "a"},
			"stage":       "attack",
			"is_critical": true,
		},
	}

	rec, err := n.Normalize(ev)
	require.NoError(t, err)

	// Hits are filtered to AllTargets and kept in AllTargets order
	assert.Equal(t, []ir.TokenRef{"a", "c"}, rec.HitTargets)
	assert.True(t, rec.Critical)
	assert.Equal(t, ir.RollPhaseAttack, rec.RollPhase)
}

func TestNormalize_MidiAllMiss(t *testing.T) {
	n := New("")
	ev := Event{
		System: "midi-qol",
		Payload: map[string]any{
			"item":        map[string]any{"name": "Longbow"},
			"token_id":    "src",
			"targets":     []any{"a"},
			"hit_targets": []any{},
		},
	}

	rec, err := n.Normalize(ev)
	require.NoError(t, err)
	assert.Empty(t, rec.HitTargets)
	assert.Equal(t, []ir.TokenRef{"a"}, rec.AllTargets)
}

func TestNormalize_AmmoReplacesItem(t *testing.T) {
	n := New("")
	ev := makeDnd5eEvent("")
	ev.Payload["ammo"] = map[string]any{"uuid": "Item.arrow", "name": "Fire Arrow"}

	rec, err := n.Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, "firearrow", rec.NormalizedName)
	assert.Equal(t, "Item.arrow", rec.Origin)
}

func TestNormalize_SingleStepSystems(t *testing.T) {
	n := New("")

	pf1, err := n.Normalize(Event{System: "pf1", Payload: map[string]any{
		"item":  map[string]any{"name": "Longsword", "has_attack": true},
		"token": "src",
	}})
	require.NoError(t, err)
	assert.Equal(t, ir.RollPhasePass, pf1.RollPhase)
	assert.False(t, pf1.HasAttack)
	assert.True(t, Routes(pf1, false))

	wfrp, err := n.Normalize(Event{System: "wfrp4e", Payload: map[string]any{
		"kind":   "spell",
		"spell":  map[string]any{"name": "Dart"},
		"token":  "src",
		"targets": []any{"t1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "dart", wfrp.NormalizedName)
	assert.Equal(t, []ir.TokenRef{"t1"}, wfrp.AllTargets)
}

func TestNormalize_UnknownSystemUsesGeneric(t *testing.T) {
	n := New("")
	rec, err := n.Normalize(Event{
		System:       "swade",
		ActiveEffect: true,
		Payload: map[string]any{
			"item_name":   "Bolt",
			"source":      "src",
			"all_targets": []any{"t1"},
			"roll_phase":  "nonsense",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "swade", rec.SystemID)
	assert.Equal(t, "bolt", rec.NormalizedName)
	assert.Equal(t, ir.RollPhasePass, rec.RollPhase, "invalid phases fall back to pass")
	assert.True(t, rec.IsActiveEffectTrigger)
	assert.Equal(t, []ir.TokenRef{"t1"}, rec.HitTargets)
}

type stubAdapter struct{}

func (stubAdapter) System() string { return "dnd5e" }
func (stubAdapter) Extract(Event) (ir.ActionRecord, error) {
	return ir.ActionRecord{ItemName: "Stub", Source: "s"}, nil
}

func TestNormalize_WithAdapterOverrides(t *testing.T) {
	n := New("", WithAdapter(stubAdapter{}), fixedOrigin("o"))
	rec, err := n.Normalize(makeDnd5eEvent("Long Rest"))
	require.NoError(t, err)
	assert.Equal(t, "stub", rec.NormalizedName)
}
