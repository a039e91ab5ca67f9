package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/ir"
)

func TestCompileAnimationBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: "Fire Ball": {
			menu: "range"
			layers: {
				secondary: {
					file: "jb2a.fireball.beam.orange"
					wait: true
				}
				target: {
					file: "jb2a.fireball.explosion.orange"
					radius: true
					size: 2
					complete: true
				}
			}
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileAnimation(v.LookupPath(cue.ParsePath(`animation."Fire Ball"`)))
	require.NoError(t, err)

	assert.Equal(t, "animation/Fire Ball", def.ID)
	assert.Equal(t, "fireball", def.MatchKey)
	assert.Equal(t, ir.MatchName, def.MatchKind)
	assert.Equal(t, ir.MenuRange, def.Menu)
	assert.True(t, def.Enabled)
	assert.Nil(t, def.Layers.Source)
	require.NotNil(t, def.Layers.Secondary)
	require.NotNil(t, def.Layers.Target)
	assert.True(t, def.Layers.Secondary.Wait)
	assert.Equal(t, 2.0, def.Layers.Target.Size)
	assert.True(t, def.Layers.Target.Radius)
	assert.True(t, def.Layers.Target.Complete)
}

func TestCompileAnimationDefaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: shield: {
			menu: "ontoken"
			layers: source: file: "jb2a.shield.blue"
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileAnimation(v.LookupPath(cue.ParsePath("animation.shield")))
	require.NoError(t, err)

	l := def.Layers.Source
	require.NotNil(t, l)
	assert.Equal(t, ir.Anchor{X: DefaultAnchor, Y: DefaultAnchor}, l.Anchor)
	assert.Equal(t, DefaultSize, l.Size)
	assert.Equal(t, DefaultElevation, l.Elevation)
	assert.Equal(t, DefaultFadeInMs, l.FadeInMs)
	assert.Equal(t, DefaultFadeOutMs, l.FadeOutMs)
	assert.Equal(t, DefaultOpacity, l.Opacity)
	assert.Equal(t, DefaultRepeat, l.Repeat)
	assert.Equal(t, DefaultPlaybackRate, l.PlaybackRate)
	assert.Equal(t, DefaultZIndex, l.ZIndex)
	assert.False(t, l.Wait)
	assert.Nil(t, l.Sound)
}

func TestCompileAnimationExplicitName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: mm: {
			name: "Magic Missile"
			menu: "range"
			enabled: false
			layers: secondary: {
				file: "jb2a.magic_missile"
				sound: { file: "sfx/missile.ogg", volume: 0.5, delay_ms: 100 }
			}
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileAnimation(v.LookupPath(cue.ParsePath("animation.mm")))
	require.NoError(t, err)

	assert.Equal(t, "magicmissile", def.MatchKey)
	assert.False(t, def.Enabled)
	require.NotNil(t, def.Layers.Secondary.Sound)
	assert.Equal(t, ir.SoundCue{File: "sfx/missile.ogg", Volume: 0.5, DelayMs: 100}, *def.Layers.Secondary.Sound)
}

func TestCompileAnimationMissingMenu(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: bad: {
			layers: source: file: "x"
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileAnimation(v.LookupPath(cue.ParsePath("animation.bad")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "menu")
	assert.Contains(t, err.Error(), "required")
}

func TestCompileAnimationWrongFieldKind(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: bad: {
			menu: "melee"
			layers: target: { file: "x", size: "large" }
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileAnimation(v.LookupPath(cue.ParsePath("animation.bad")))
	require.Error(t, err)
}

func TestCompileAnimationSoundWithoutFile(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: bad: {
			menu: "melee"
			layers: target: { file: "x", sound: { volume: 1 } }
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileAnimation(v.LookupPath(cue.ParsePath("animation.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sound.file")
}

func TestCompileCategory(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		category: ranged: {
			menu: "range"
			members: ["Fire Bolt", "Eldritch Blast", "Ray of Frost"]
			layers: {
				secondary: file: "jb2a.bolt"
				target: file: "jb2a.impact"
			}
		}
	`)

	require.NoError(t, v.Err())
	cat, def, err := CompileCategory(v.LookupPath(cue.ParsePath("category.ranged")))
	require.NoError(t, err)

	assert.Equal(t, "ranged", cat.Name)
	assert.Equal(t, ir.MenuRange, cat.Menu)
	assert.Equal(t, []string{"firebolt", "eldritchblast", "rayoffrost"}, cat.Members)

	assert.Equal(t, "category/ranged", def.ID)
	assert.Equal(t, ir.MatchCategory, def.MatchKind)
	assert.Equal(t, "ranged", def.MatchKey)
	assert.Equal(t, 2, def.Layers.Count())
}

func TestCompilePreset(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		preset: teleportation: {
			layers: {
				source: file: "jb2a.misty_step.01"
				target: file: "jb2a.misty_step.02"
			}
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompilePreset(v.LookupPath(cue.ParsePath("preset.teleportation")))
	require.NoError(t, err)

	assert.Equal(t, ir.MenuPreset, def.Menu)
	assert.Equal(t, ir.PresetTeleportation, def.PresetType)
	assert.Equal(t, ir.MatchPreset, def.MatchKind)
	assert.True(t, def.IsTeleport())
}

func TestCompileCatalogOrder(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: fireball: {
			menu: "range"
			layers: target: file: "a"
		}
		category: melee: {
			menu: "melee"
			members: ["Longsword"]
			layers: target: file: "b"
		}
		category: monk: {
			menu: "melee"
			members: ["Unarmed Strike"]
			layers: target: file: "c"
		}
		preset: thunderwave: {
			layers: source: file: "d"
		}
	`)

	require.NoError(t, v.Err())
	cat, errs := CompileCatalog(v, true)
	require.Empty(t, errs)

	assert.Equal(t, ir.CatalogVersion, cat.Version)
	require.Len(t, cat.Categories, 2)
	assert.Equal(t, "melee", cat.Categories[0].Name)
	assert.Equal(t, "monk", cat.Categories[1].Name)

	ids := make([]string, len(cat.Definitions))
	for i, d := range cat.Definitions {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"animation/fireball", "category/melee", "category/monk", "preset/thunderwave"}, ids)
}

func TestCompileCatalogErrorNamesEntry(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: broken: {
			layers: target: file: "a"
		}
	`)

	require.NoError(t, v.Err())
	_, errs := CompileCatalog(v, true)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "animation.broken")

	var entryErr *EntryError
	require.ErrorAs(t, errs[0], &entryErr)
	assert.Equal(t, "animation.broken", entryErr.Path)

	var compileErr *CompileError
	require.ErrorAs(t, errs[0], &compileErr)
	assert.Equal(t, "menu", compileErr.Field)
}

func TestCompileCatalogCollectAll(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		animation: a: { layers: target: file: "a" }
		animation: b: { menu: "melee", layers: target: file: "b" }
		animation: c: { layers: target: file: "c" }
	`)

	require.NoError(t, v.Err())
	cat, errs := CompileCatalog(v, false)
	require.Len(t, errs, 2)
	require.Len(t, cat.Definitions, 1)
	assert.Equal(t, "animation/b", cat.Definitions[0].ID)

	_, errs = CompileCatalog(v, true)
	assert.Len(t, errs, 1)
}

func TestCompileCatalogEmpty(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`{}`)

	cat, errs := CompileCatalog(v, false)
	require.Empty(t, errs)
	assert.Empty(t, cat.Definitions)
	assert.NotNil(t, cat.Definitions)
	assert.NotNil(t, cat.Categories)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "menu", Message: "menu is required"}
	assert.Equal(t, "menu: menu is required", err.Error())
}
