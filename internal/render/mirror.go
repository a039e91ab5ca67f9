package render

import (
	"context"

	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/ir"
)

// SceneStore resolves the in-memory scene a batch lands on.
type SceneStore interface {
	Effects(sceneID string) (EffectSink, bool)
}

// EffectSink is the part of an in-memory scene the mirror writes to.
type EffectSink interface {
	Grid() (ir.Grid, bool)
	Token(ref ir.TokenRef) (ir.Token, bool)
	AddEffect(e ir.EffectInstance)
}

// StageScenes resolves scenes from a host stage.
type StageScenes struct {
	Stage *host.Stage
}

func (s StageScenes) Effects(sceneID string) (EffectSink, bool) {
	m, ok := s.Stage.Memory(sceneID)
	if !ok {
		return nil, false
	}
	return m, true
}

// SceneMirror forwards to Next and, once Next accepts a batch, records the
// effects that outlive playback on the scene: persistent placements and
// named placements. Later dispatches see them as occupied targets and
// animation sources.
type SceneMirror struct {
	Next   Renderer
	Scenes SceneStore
}

func (m SceneMirror) Render(ctx context.Context, b Batch) error {
	if m.Next != nil {
		if err := m.Next.Render(ctx, b); err != nil {
			return err
		}
	}
	sink, ok := m.Scenes.Effects(b.SceneID)
	if !ok {
		return nil
	}
	for _, p := range b.Placements {
		if !p.Persist && p.Name == "" {
			continue
		}
		sink.AddEffect(effectOf(sink, p))
	}
	return nil
}

func (m SceneMirror) PlaySound(ctx context.Context, s Sound) error {
	if m.Next == nil {
		return nil
	}
	return m.Next.PlaySound(ctx, s)
}

// effectOf places p on the scene. Token placements take the token center,
// point placements the point; size converts from cells to pixels.
func effectOf(sink EffectSink, p ir.Placement) ir.EffectInstance {
	e := ir.EffectInstance{
		Name:   p.Name,
		Origin: p.Origin,
		Target: p.TargetToken(),
	}
	grid, gridOK := sink.Grid()
	if gridOK {
		e.Width = p.Size * grid.Size
		e.Height = e.Width
	}
	switch {
	case p.Location.Point != nil:
		e.X, e.Y = p.Location.Point.X, p.Location.Point.Y
	case e.Target != "" && gridOK:
		if tok, ok := sink.Token(e.Target); ok {
			e.X = tok.X + tok.Width*grid.Size/2
			e.Y = tok.Y + tok.Height*grid.Size/2
		}
	}
	return e
}
