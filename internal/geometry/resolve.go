package geometry

import (
	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/ir"
)

// Options selects the measurement variant and randomness of a resolution.
type Options struct {
	// EdgeDistance measures edge-to-edge instead of multi-cell minimum.
	EdgeDistance bool

	// Rand drives the fake-source pick. Required when a layer sets
	// AnimationSource.
	Rand Rand
}

// Resolve computes the geometry of one dispatch from live scene state.
// Targets follow rec.AllTargets order. scene may be nil.
func Resolve(scene host.Scene, rec *ir.ActionRecord, def *ir.AnimationDefinition, opts Options) ir.Geometry {
	g := ir.Geometry{Targets: make([]ir.TargetGeometry, 0, len(rec.AllTargets))}

	var grid ir.Grid
	if scene != nil {
		grid, g.GridOK = scene.Grid()
		g.Source, g.SourceOK = scene.Token(rec.Source)
	}
	if g.GridOK {
		g.GridSize = grid.Size
	}

	var m Measurer
	if g.GridOK {
		m = GridMeasurer{Grid: grid}
	}

	for _, ref := range rec.AllTargets {
		tg := ir.TargetGeometry{
			Token:    ir.Token{ID: ref},
			Distance: ir.DistanceUnknown,
			Hit:      rec.IsHit(ref) && !rec.ForceMiss,
		}
		if scene != nil {
			if tok, ok := scene.Token(ref); ok {
				tg.Token = tok
				tg.OK = true
			}
			tg.Occupied = scene.HasEffect(rec.Origin, ref)
		}
		if tg.OK && g.SourceOK && g.GridOK {
			if opts.EdgeDistance {
				tg.Distance = EdgeDistance(g.Source, tg.Token, grid, m)
			} else {
				tg.Distance = MultiCellDistance(g.Source, tg.Token, grid, m)
			}
		}
		g.Targets = append(g.Targets, tg)
	}

	if rec.Template != nil {
		g.TemplateWidth = TemplateWidth(rec.Template, grid, g.GridOK)
	}

	if scene != nil && g.GridOK && opts.Rand != nil && usesAnimationSource(def) {
		if e, ok := scene.LatestEffect(rec.NormalizedName); ok {
			p := FakeSource(e, grid.Size, opts.Rand)
			g.FakeSource = &p
		}
	}

	return g
}

func usesAnimationSource(def *ir.AnimationDefinition) bool {
	if def == nil {
		return false
	}
	for _, l := range []*ir.LayerSpec{def.Layers.Source, def.Layers.Secondary, def.Layers.Target} {
		if l != nil && l.AnimationSource {
			return true
		}
	}
	return false
}

// TemplateWidth is the footprint of an area template in grid cells. Circles
// span twice their radius; other shapes span their length. Without a grid
// the footprint is one cell.
func TemplateWidth(t *ir.TemplateData, grid ir.Grid, gridOK bool) float64 {
	if !gridOK || t.Distance <= 0 {
		return 1
	}
	cells := t.Distance / grid.Distance
	if t.Shape == "circle" {
		return cells * 2
	}
	return cells
}
