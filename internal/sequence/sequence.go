package sequence

import (
	"github.com/roach88/fxdispatch/internal/geometry"
	"github.com/roach88/fxdispatch/internal/ir"
)

// Overlays are the critical-hit and fumble assets. Empty disables one.
type Overlays struct {
	Critical string
	Fumble   string
}

// Input is everything one compilation reads.
type Input struct {
	Record     *ir.ActionRecord
	Definition *ir.AnimationDefinition
	Geometry   ir.Geometry

	// Played holds the targets the origin already played on this scene.
	Played map[ir.TokenRef]bool

	// PlayOnMiss places missed targets at a miss spot; otherwise missed
	// targets get no secondary or target placements.
	PlayOnMiss bool

	Overlays Overlays
}

// Compile expands a definition into placements. The result is never nil.
//
// A template-based definition compiles only once the record carries its
// template; before that the result is empty.
func Compile(in Input) []ir.Placement {
	out := []ir.Placement{}
	def := in.Definition
	if def == nil || in.Record == nil || def.Layers.Count() == 0 {
		return out
	}
	if def.IsTemplateAnimation() && in.Record.Template == nil {
		return out
	}

	c := compilation{Input: in}
	if p, ok := c.overlay(); ok {
		out = append(out, p)
	}

	if l := def.Layers.Source; l != nil {
		out = append(out, c.source(l))
	}

	switch {
	case def.IsTemplateAnimation():
		if l := def.Layers.Secondary; l != nil {
			out = append(out, c.towardsPoint(l, c.templateLocation()))
		}
		if l := def.Layers.Target; l != nil {
			out = append(out, c.template(l))
		}
	case def.IsTeleport():
		dest := in.Record.Destination
		if dest == nil {
			break
		}
		loc := ir.Location{Kind: ir.LocationPoint, Point: &ir.Point{X: dest.X, Y: dest.Y}}
		if l := def.Layers.Secondary; l != nil {
			out = append(out, c.towardsPoint(l, loc))
		}
		if l := def.Layers.Target; l != nil {
			out = append(out, c.atPoint(l, loc))
		}
	default:
		targets := c.eligibleTargets()
		near, far := targets, targets
		if def.Menu == ir.MenuMelee && def.Layers.Secondary != nil {
			near, far = c.splitByReach(targets)
		}
		if l := def.Layers.Secondary; l != nil {
			out = append(out, c.secondary(l, far)...)
		}
		if l := def.Layers.Target; l != nil {
			out = append(out, c.target(l, near)...)
		}
	}
	return out
}

type compilation struct {
	Input
}

// base fills the options every placement copies from its layer.
func (c *compilation) base(l *ir.LayerSpec, phase ir.Phase, footprint float64) ir.Placement {
	p := ir.Placement{
		Phase:         phase,
		File:          l.File,
		Origin:        c.Record.Origin,
		Anchor:        l.Anchor,
		Size:          geometry.Size(l, footprint),
		Elevation:     geometry.Elevation(l.Absolute, l.Elevation),
		Absolute:      l.Absolute,
		FadeInMs:      l.FadeInMs,
		Opacity:       l.Opacity,
		Repeat:        l.Repeat,
		RepeatDelayMs: l.RepeatDelayMs,
		PlaybackRate:  l.PlaybackRate,
		ZIndex:        l.ZIndex,
		Timing:        ir.Timing{Mode: ir.TimingDelay, DelayMs: l.DelayMs},
	}
	// Assets tagged complete fade out on their own.
	if !l.Complete {
		fade := l.FadeOutMs
		p.FadeOutMs = &fade
	}
	if l.RotateSource && c.Record.Source != "" {
		p.RotateTowards = c.Record.Source
	}
	return p
}

// withSound attaches the layer sound to the first placement of a phase.
func withSound(ps []ir.Placement, l *ir.LayerSpec) []ir.Placement {
	if len(ps) > 0 && l.Sound != nil {
		s := *l.Sound
		ps[0].Sound = &s
	}
	return ps
}

func (c *compilation) sourceFootprint() float64 {
	if c.Geometry.SourceOK && c.Geometry.Source.Width > 0 {
		return c.Geometry.Source.Width
	}
	return 1
}

func (c *compilation) sourceLocation() ir.Location {
	return ir.Location{Kind: ir.LocationToken, Token: c.Record.Source}
}

// origin is where traveling layers start: the fake source when the layer
// asks for one and it resolved, else the source token.
func (c *compilation) origin(l *ir.LayerSpec) *ir.Location {
	if l.AnimationSource && c.Geometry.FakeSource != nil {
		pt := *c.Geometry.FakeSource
		return &ir.Location{Kind: ir.LocationPoint, Point: &pt}
	}
	if c.Record.Source == "" {
		return nil
	}
	loc := c.sourceLocation()
	return &loc
}

func (c *compilation) overlay() (ir.Placement, bool) {
	var file string
	switch {
	case c.Record.Critical && c.Overlays.Critical != "":
		file = c.Overlays.Critical
	case c.Record.Fumble && c.Overlays.Fumble != "":
		file = c.Overlays.Fumble
	default:
		return ir.Placement{}, false
	}

	p := ir.Placement{
		Phase:        ir.PhaseOverlay,
		File:         file,
		Origin:       c.Record.Origin,
		Location:     c.sourceLocation(),
		Anchor:       ir.Anchor{X: 0.5, Y: 0.5},
		Size:         1,
		Opacity:      1,
		Repeat:       1,
		PlaybackRate: 1,
		Timing:       ir.Timing{Mode: ir.TimingDelay},
	}
	if g := c.Geometry; g.SourceOK && g.GridSize > 0 {
		p.Location = ir.Location{
			Kind: ir.LocationPoint,
			Point: &ir.Point{
				X: g.Source.X + g.Source.Width*g.GridSize/2,
				Y: g.Source.Y + g.Source.Height*g.GridSize/2,
			},
		}
	}
	return p, true
}

func (c *compilation) source(l *ir.LayerSpec) ir.Placement {
	p := c.base(l, ir.PhaseSource, c.sourceFootprint())

	if l.AnimationSource && c.Geometry.FakeSource != nil {
		pt := *c.Geometry.FakeSource
		p.Location = ir.Location{Kind: ir.LocationPoint, Point: &pt}
	} else {
		p.Location = c.sourceLocation()
		p.AttachTo = c.Record.Source
		if l.Persistent {
			p.Persist = true
			p.BindVisibility = !l.UnbindVisibility
			p.BindAlpha = !l.UnbindAlpha
		}
	}
	if l.Masked {
		p.Mask = c.Record.Source
	}
	p.RotateTowards = ""
	if l.Wait {
		p.Timing.Mode = ir.TimingWait
	}
	return withSound([]ir.Placement{p}, l)[0]
}

// eligibleTargets drops missed targets when misses do not play.
func (c *compilation) eligibleTargets() []ir.TargetGeometry {
	var out []ir.TargetGeometry
	for _, t := range c.Geometry.Targets {
		if !t.Hit && !c.PlayOnMiss {
			continue
		}
		out = append(out, t)
	}
	return out
}

// inRange reports whether a range-dependent layer may play on t. An
// undeterminable distance never satisfies a range.
func inRange(l *ir.LayerSpec, t ir.TargetGeometry) bool {
	if !l.RangeDependent() {
		return true
	}
	if t.Distance == ir.DistanceUnknown {
		return false
	}
	if l.MinRange > 0 && t.Distance < l.MinRange {
		return false
	}
	if l.MaxRange > 0 && t.Distance > l.MaxRange {
		return false
	}
	return true
}

// DefaultReach is the melee reach, in grid units, of a record without one.
const DefaultReach = 1.0

// splitByReach partitions melee targets. The strike plays on targets within
// reach; the secondary layer is the thrown switch for targets beyond it. A
// target at an unknown distance counts as within reach.
func (c *compilation) splitByReach(targets []ir.TargetGeometry) (near, far []ir.TargetGeometry) {
	reach := c.Record.Reach
	if reach <= 0 {
		reach = DefaultReach
	}
	for _, t := range targets {
		if t.Distance != ir.DistanceUnknown && t.Distance > reach {
			far = append(far, t)
			continue
		}
		near = append(near, t)
	}
	return near, far
}

func targetLocation(t ir.TargetGeometry) ir.Location {
	if t.Hit {
		return ir.Location{Kind: ir.LocationToken, Token: t.Token.ID}
	}
	return ir.Location{Kind: ir.LocationMissSpot, Token: t.Token.ID}
}

func footprint(t ir.TargetGeometry) float64 {
	if t.OK && t.Token.Width > 0 {
		return t.Token.Width
	}
	return 1
}

// secondary emits one traveling placement per target in range. Only the
// last one emitted may wait, and only when a target layer follows; the rest
// keep their fixed delay so the projectiles fly in parallel.
func (c *compilation) secondary(l *ir.LayerSpec, targets []ir.TargetGeometry) []ir.Placement {
	var reached []ir.TargetGeometry
	for _, t := range targets {
		if inRange(l, t) {
			reached = append(reached, t)
		}
	}

	var out []ir.Placement
	waitOnLast := l.Wait && c.Definition.Layers.Target != nil

	for i, t := range reached {
		p := c.base(l, ir.PhaseSecondary, footprint(t))
		p.Location = targetLocation(t)
		p.From = c.origin(l)
		if l.Masked {
			p.Mask = t.Token.ID
		}
		switch {
		case i == len(reached)-1 && waitOnLast:
			p.Timing = ir.Timing{Mode: ir.TimingWait, DelayMs: l.DelayMs}
		case l.Wait:
			p.Timing = ir.Timing{Mode: ir.TimingDelay}
		}
		out = append(out, p)
	}
	return withSound(out, l)
}

// target emits one placement per target the origin has not reached yet.
// Persistent hits attach to the token and follow its visibility and alpha
// unless unbound.
func (c *compilation) target(l *ir.LayerSpec, targets []ir.TargetGeometry) []ir.Placement {
	var out []ir.Placement
	for _, t := range targets {
		if t.Occupied || c.Played[t.Token.ID] {
			continue
		}
		if !inRange(l, t) {
			continue
		}
		p := c.base(l, ir.PhaseTarget, footprint(t))
		p.Location = targetLocation(t)
		if l.Persistent && t.Hit {
			p.AttachTo = t.Token.ID
			p.Persist = true
			p.BindVisibility = !l.UnbindVisibility
			p.BindAlpha = !l.UnbindAlpha
		}
		if l.Masked {
			p.Mask = t.Token.ID
		}
		out = append(out, p)
	}
	return withSound(out, l)
}

func (c *compilation) templateLocation() ir.Location {
	tpl := c.Record.Template
	return ir.Location{
		Kind:     ir.LocationTemplate,
		Template: tpl.ID,
		Point:    &ir.Point{X: tpl.X, Y: tpl.Y},
	}
}

// towardsPoint emits a single traveling placement aimed at a point.
func (c *compilation) towardsPoint(l *ir.LayerSpec, loc ir.Location) ir.Placement {
	p := c.base(l, ir.PhaseSecondary, 1)
	p.Location = loc
	p.From = c.origin(l)
	if l.Wait && c.Definition.Layers.Target != nil {
		p.Timing.Mode = ir.TimingWait
	} else if l.Wait {
		p.Timing = ir.Timing{Mode: ir.TimingDelay}
	}
	return withSound([]ir.Placement{p}, l)[0]
}

// template places the target layer on the area template. It is named after
// the item so later traveling effects can originate from it.
func (c *compilation) template(l *ir.LayerSpec) ir.Placement {
	p := c.base(l, ir.PhaseTarget, c.Geometry.TemplateWidth)
	p.Location = c.templateLocation()
	p.Name = c.Record.NormalizedName
	if l.Persistent {
		p.Persist = true
	}
	return withSound([]ir.Placement{p}, l)[0]
}

func (c *compilation) atPoint(l *ir.LayerSpec, loc ir.Location) ir.Placement {
	p := c.base(l, ir.PhaseTarget, c.sourceFootprint())
	p.Location = loc
	return withSound([]ir.Placement{p}, l)[0]
}
