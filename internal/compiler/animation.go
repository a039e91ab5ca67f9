package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/normalize"
)

// Layer defaults applied when a catalog entry leaves an option unset.
const (
	DefaultSize         = 1.0
	DefaultElevation    = 1.0
	DefaultFadeInMs     = 250
	DefaultFadeOutMs    = 500
	DefaultOpacity      = 1.0
	DefaultRepeat       = 1
	DefaultPlaybackRate = 1.0
	DefaultZIndex       = 1
	DefaultAnchor       = 0.5
)

// CompileAnimation parses a CUE value into a name-keyed AnimationDefinition.
//
// The CUE value should be the entry struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`animation: fireball: { menu: "range", layers: {...} }`)
//	def, err := CompileAnimation(v.LookupPath(cue.ParsePath("animation.fireball")))
//
// The match key is the normalized label unless the entry sets name.
func CompileAnimation(v cue.Value) (*ir.AnimationDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	key := label(v)

	menu, err := requireMenu(v)
	if err != nil {
		return nil, err
	}

	name, err := optString(v, "name", key)
	if err != nil {
		return nil, err
	}
	presetType, err := optString(v, "preset_type", "")
	if err != nil {
		return nil, err
	}
	enabled, err := optBool(v, "enabled", true)
	if err != nil {
		return nil, err
	}
	layers, err := parseLayers(v)
	if err != nil {
		return nil, err
	}

	return &ir.AnimationDefinition{
		ID:         "animation/" + key,
		MatchKey:   normalize.Name(name),
		MatchKind:  ir.MatchName,
		Menu:       menu,
		PresetType: ir.PresetType(presetType),
		Layers:     layers,
		Enabled:    enabled,
	}, nil
}

// CompileCategory parses a CUE category block into a Category and the
// definition its members play.
func CompileCategory(v cue.Value) (*ir.Category, *ir.AnimationDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, nil, formatCUEError(err)
	}
	name := label(v)

	menu, err := requireMenu(v)
	if err != nil {
		return nil, nil, err
	}

	cat := &ir.Category{Name: name, Menu: menu, Members: []string{}}
	membersVal := v.LookupPath(cue.ParsePath("members"))
	if membersVal.Exists() {
		members, err := stringList(membersVal)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range members {
			cat.Members = append(cat.Members, normalize.Name(m))
		}
	}

	enabled, err := optBool(v, "enabled", true)
	if err != nil {
		return nil, nil, err
	}
	layers, err := parseLayers(v)
	if err != nil {
		return nil, nil, err
	}

	def := &ir.AnimationDefinition{
		ID:        "category/" + name,
		MatchKey:  name,
		MatchKind: ir.MatchCategory,
		Menu:      menu,
		Layers:    layers,
		Enabled:   enabled,
	}
	return cat, def, nil
}

// CompilePreset parses a CUE preset block. The label is the preset type.
func CompilePreset(v cue.Value) (*ir.AnimationDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	presetType := label(v)

	enabled, err := optBool(v, "enabled", true)
	if err != nil {
		return nil, err
	}
	layers, err := parseLayers(v)
	if err != nil {
		return nil, err
	}

	return &ir.AnimationDefinition{
		ID:         "preset/" + presetType,
		MatchKey:   presetType,
		MatchKind:  ir.MatchPreset,
		Menu:       ir.MenuPreset,
		PresetType: ir.PresetType(presetType),
		Layers:     layers,
		Enabled:    enabled,
	}, nil
}

func requireMenu(v cue.Value) (ir.MenuKind, error) {
	menuVal := v.LookupPath(cue.ParsePath("menu"))
	if !menuVal.Exists() {
		return "", &CompileError{
			Field:   "menu",
			Message: "menu is required",
			Pos:     v.Pos(),
		}
	}
	menu, err := menuVal.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return ir.MenuKind(menu), nil
}

// parseLayers reads the optional source, secondary and target layers.
func parseLayers(v cue.Value) (ir.Layers, error) {
	var layers ir.Layers
	layersVal := v.LookupPath(cue.ParsePath("layers"))
	if !layersVal.Exists() {
		return layers, nil
	}

	for _, slot := range []struct {
		name string
		dst  **ir.LayerSpec
	}{
		{"source", &layers.Source},
		{"secondary", &layers.Secondary},
		{"target", &layers.Target},
	} {
		lv := layersVal.LookupPath(cue.ParsePath(slot.name))
		if !lv.Exists() {
			continue
		}
		spec, err := parseLayer(lv)
		if err != nil {
			return ir.Layers{}, err
		}
		*slot.dst = spec
	}
	return layers, nil
}

// parseLayer reads one layer with every unset option defaulted.
func parseLayer(v cue.Value) (*ir.LayerSpec, error) {
	if _, err := v.Fields(); err != nil {
		return nil, &CompileError{
			Field:   label(v),
			Message: "layer must be a struct",
			Pos:     v.Pos(),
		}
	}

	var (
		l   ir.LayerSpec
		err error
	)
	read := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}
	str := func(dst *string, path, def string) {
		read(func() (e error) { *dst, e = optString(v, path, def); return })
	}
	boolean := func(dst *bool, path string, def bool) {
		read(func() (e error) { *dst, e = optBool(v, path, def); return })
	}
	float := func(dst *float64, path string, def float64) {
		read(func() (e error) { *dst, e = optFloat(v, path, def); return })
	}
	integer := func(dst *int, path string, def int) {
		read(func() (e error) { *dst, e = optInt(v, path, def); return })
	}

	str(&l.File, "file", "")
	float(&l.Anchor.X, "anchor.x", DefaultAnchor)
	float(&l.Anchor.Y, "anchor.y", DefaultAnchor)
	boolean(&l.Radius, "radius", false)
	float(&l.Size, "size", DefaultSize)
	boolean(&l.AddTokenWidth, "add_token_width", false)
	float(&l.Elevation, "elevation", DefaultElevation)
	boolean(&l.Absolute, "absolute", false)
	integer(&l.FadeInMs, "fade_in_ms", DefaultFadeInMs)
	integer(&l.FadeOutMs, "fade_out_ms", DefaultFadeOutMs)
	float(&l.Opacity, "opacity", DefaultOpacity)
	integer(&l.Repeat, "repeat", DefaultRepeat)
	integer(&l.RepeatDelayMs, "repeat_delay_ms", 0)
	float(&l.PlaybackRate, "playback_rate", DefaultPlaybackRate)
	integer(&l.ZIndex, "z_index", DefaultZIndex)
	boolean(&l.Wait, "wait", false)
	integer(&l.DelayMs, "delay_ms", 0)
	boolean(&l.Masked, "masked", false)
	boolean(&l.Persistent, "persistent", false)
	boolean(&l.UnbindVisibility, "unbind_visibility", false)
	boolean(&l.UnbindAlpha, "unbind_alpha", false)
	boolean(&l.Complete, "complete", false)
	boolean(&l.AnimationSource, "animation_source", false)
	boolean(&l.RotateSource, "rotate_source", false)
	float(&l.MinRange, "min_range", 0)
	float(&l.MaxRange, "max_range", 0)
	if err != nil {
		return nil, err
	}

	soundVal := v.LookupPath(cue.ParsePath("sound"))
	if soundVal.Exists() {
		sound, err := parseSound(soundVal)
		if err != nil {
			return nil, err
		}
		l.Sound = sound
	}
	return &l, nil
}

func parseSound(v cue.Value) (*ir.SoundCue, error) {
	file, err := optString(v, "file", "")
	if err != nil {
		return nil, err
	}
	if file == "" {
		return nil, &CompileError{
			Field:   "sound.file",
			Message: "sound file is required",
			Pos:     v.Pos(),
		}
	}
	volume, err := optFloat(v, "volume", 1)
	if err != nil {
		return nil, err
	}
	delay, err := optInt(v, "delay_ms", 0)
	if err != nil {
		return nil, err
	}
	return &ir.SoundCue{File: file, Volume: volume, DelayMs: delay}, nil
}

// EntryError ties a compile error to the catalog entry that produced it,
// e.g. "animation.fireball".
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// CompileCatalog compiles the animation, category and preset blocks of a
// catalog value. Categories keep declaration order.
//
// With failFast set, compilation stops at the first entry error. Otherwise
// broken entries are left out and every error is returned.
func CompileCatalog(v cue.Value, failFast bool) (*ir.Catalog, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	cat := &ir.Catalog{
		Version:     ir.CatalogVersion,
		Definitions: []ir.AnimationDefinition{},
		Categories:  []ir.Category{},
	}

	blocks := []struct {
		path    string
		compile func(cue.Value) error
	}{
		{"animation", func(fv cue.Value) error {
			def, err := CompileAnimation(fv)
			if err != nil {
				return err
			}
			cat.Definitions = append(cat.Definitions, *def)
			return nil
		}},
		{"category", func(fv cue.Value) error {
			c, def, err := CompileCategory(fv)
			if err != nil {
				return err
			}
			cat.Categories = append(cat.Categories, *c)
			cat.Definitions = append(cat.Definitions, *def)
			return nil
		}},
		{"preset", func(fv cue.Value) error {
			def, err := CompilePreset(fv)
			if err != nil {
				return err
			}
			cat.Definitions = append(cat.Definitions, *def)
			return nil
		}},
	}

	var errs []error
	for _, block := range blocks {
		blockVal := v.LookupPath(cue.ParsePath(block.path))
		if !blockVal.Exists() {
			continue
		}
		iter, err := blockVal.Fields()
		if err != nil {
			errs = append(errs, &EntryError{Path: block.path, Err: formatCUEError(err)})
			if failFast {
				return cat, errs
			}
			continue
		}
		for iter.Next() {
			if err := block.compile(iter.Value()); err != nil {
				errs = append(errs, &EntryError{Path: block.path + "." + iter.Selector().String(), Err: err})
				if failFast {
					return cat, errs
				}
			}
		}
	}
	return cat, errs
}
