package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/ir"
)

var grid555 = ir.Grid{Size: 100, Distance: 5, Diagonal: ir.Diagonal555}

func token(id string, x, y, w, h float64) ir.Token {
	return ir.Token{ID: ir.TokenRef(id), X: x, Y: y, Width: w, Height: h}
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func TestGridMeasurer_DiagonalRules(t *testing.T) {
	a := ir.Point{X: 50, Y: 50}
	b := ir.Point{X: 350, Y: 250}

	tests := []struct {
		rule ir.DiagonalRule
		want float64
	}{
		{ir.Diagonal555, 15},
		{"", 15},
		{ir.Diagonal5105, 20},
		{ir.DiagonalEuclidean, math.Hypot(3, 2) * 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			m := GridMeasurer{Grid: ir.Grid{Size: 100, Distance: 5, Diagonal: tt.rule}}
			assert.InDelta(t, tt.want, m.Measure(a, b), 1e-9)
		})
	}
}

func TestMultiCellDistance(t *testing.T) {
	m := GridMeasurer{Grid: grid555}

	tests := []struct {
		name     string
		src, tgt ir.Token
		want     float64
	}{
		{"adjacent cells", token("a", 0, 0, 1, 1), token("b", 100, 0, 1, 1), 1},
		{"three cells apart", token("a", 0, 0, 1, 1), token("b", 300, 0, 1, 1), 3},
		{"large target near edge", token("a", 0, 0, 1, 1), token("b", 300, 0, 2, 2), 3},
		{"large source near edge", token("a", 0, 0, 2, 2), token("b", 300, 0, 1, 1), 2},
		{"diagonal counts once", token("a", 0, 0, 1, 1), token("b", 300, 200, 1, 1), 3},
		{"overlapping", token("a", 0, 0, 3, 3), token("b", 100, 100, 1, 1), 0},
		{"tiny tokens", token("a", 0, 0, 0.5, 0.5), token("b", 200, 0, 0.5, 0.5), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MultiCellDistance(tt.src, tt.tgt, grid555, m), 1e-9)
		})
	}
}

func TestMultiCellDistance_Symmetric(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, rule := range []ir.DiagonalRule{ir.Diagonal555, ir.Diagonal5105, ir.DiagonalEuclidean} {
		grid := ir.Grid{Size: 100, Distance: 5, Diagonal: rule}
		m := GridMeasurer{Grid: grid}
		for i := 0; i < 200; i++ {
			a := token("a", float64(r.Intn(20))*100, float64(r.Intn(20))*100, float64(1+r.Intn(3)), float64(1+r.Intn(3)))
			b := token("b", float64(r.Intn(20))*100, float64(r.Intn(20))*100, float64(1+r.Intn(3)), float64(1+r.Intn(3)))
			assert.Equal(t, MultiCellDistance(a, b, grid, m), MultiCellDistance(b, a, grid, m),
				"rule=%s a=%+v b=%+v", rule, a, b)
		}
	}
}

func TestMultiCellDistance_Unknown(t *testing.T) {
	m := GridMeasurer{Grid: grid555}
	a := token("a", 0, 0, 1, 1)

	assert.Equal(t, ir.DistanceUnknown, MultiCellDistance(a, a, ir.Grid{}, m))
	assert.Equal(t, ir.DistanceUnknown, MultiCellDistance(a, a, grid555, nil))
	assert.Equal(t, ir.DistanceUnknown, MultiCellDistance(a, token("b", 0, 0, 0, 0), grid555, m))
}

func TestEdgeDistance(t *testing.T) {
	m := GridMeasurer{Grid: grid555}

	tests := []struct {
		name     string
		src, tgt ir.Token
		m        Measurer
		want     float64
	}{
		{"target right", token("a", 0, 0, 1, 1), token("b", 300, 0, 1, 1), m, 3},
		{"large source left of target", token("a", 0, 0, 2, 2), token("b", 300, 0, 1, 1), m, 2},
		{"large target left of source", token("a", 0, 0, 1, 1), token("b", -300, 0, 2, 2), m, 2},
		{"large source above target", token("a", 0, 0, 2, 2), token("b", 0, 400, 1, 1), m, 3},
		{"pixel fallback", token("a", 0, 0, 1, 1), token("b", 300, 400, 1, 1), nil, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EdgeDistance(tt.src, tt.tgt, grid555, tt.m), 1e-9)
		})
	}

	assert.Equal(t, ir.DistanceUnknown, EdgeDistance(token("a", 0, 0, 1, 1), token("b", 1, 1, 1, 1), ir.Grid{}, nil))
}

func TestSize(t *testing.T) {
	tests := []struct {
		name  string
		layer ir.LayerSpec
		width float64
		want  float64
	}{
		{"radius ignores footprint", ir.LayerSpec{Radius: true, Size: 2}, 3, 4},
		{"radius adds footprint", ir.LayerSpec{Radius: true, Size: 2, AddTokenWidth: true}, 3, 7},
		{"non-radius scales footprint", ir.LayerSpec{Size: 1}, 2, 3},
		{"non-radius fractional", ir.LayerSpec{Size: 0.5}, 1, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Size(&tt.layer, tt.width), 1e-9)
		})
	}
}

func TestElevation(t *testing.T) {
	assert.Equal(t, 3.0, Elevation(true, 3))
	assert.Equal(t, 2.0, Elevation(false, 3))
	assert.Equal(t, 0.0, Elevation(false, 1))
}

func TestFakeSource(t *testing.T) {
	e := ir.EffectInstance{Name: "wall", X: 500, Y: 500, Width: 300, Height: 200}

	assert.Equal(t, ir.Point{X: 400, Y: 450}, FakeSource(e, 100, fixedRand(0)))
	assert.Equal(t, ir.Point{X: 500, Y: 500}, FakeSource(e, 100, fixedRand(0.5)))
	assert.Equal(t, ir.Point{X: 599, Y: 549}, FakeSource(e, 100, fixedRand(0.9999)))

	small := ir.EffectInstance{X: 120, Y: 80, Width: 50, Height: 50}
	assert.Equal(t, ir.Point{X: 120, Y: 80}, FakeSource(small, 100, fixedRand(0.7)))
}

func TestFakeSource_StaysInsideInsetBox(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	e := ir.EffectInstance{X: 1000, Y: 700, Width: 400, Height: 400}
	for i := 0; i < 500; i++ {
		p := FakeSource(e, 100, r)
		assert.GreaterOrEqual(t, p.X, 850.0)
		assert.Less(t, p.X, 1150.0)
		assert.GreaterOrEqual(t, p.Y, 550.0)
		assert.Less(t, p.Y, 850.0)
	}
}

func resolveScene() *host.MemoryScene {
	g := grid555
	return host.NewMemoryScene(host.SceneData{
		ID:   "arena",
		Grid: &g,
		Tokens: []ir.Token{
			token("hero", 0, 0, 1, 1),
			token("goblin", 300, 0, 1, 1),
			token("ogre", 0, 500, 2, 2),
		},
		Effects: []ir.EffectInstance{
			{Name: "fireball", Origin: "old", X: 500, Y: 500, Width: 300, Height: 300},
			{Name: "shield", Origin: "item-1", Target: "ogre"},
		},
	})
}

func TestResolve(t *testing.T) {
	rec := &ir.ActionRecord{
		Origin:         "item-1",
		Source:         "hero",
		AllTargets:     []ir.TokenRef{"goblin", "ghost", "ogre"},
		HitTargets:     []ir.TokenRef{"goblin", "ghost"},
		NormalizedName: "fireball",
	}
	def := &ir.AnimationDefinition{Layers: ir.Layers{Target: &ir.LayerSpec{File: "x"}}}

	g := Resolve(resolveScene(), rec, def, Options{})

	assert.True(t, g.GridOK)
	assert.Equal(t, 100.0, g.GridSize)
	assert.True(t, g.SourceOK)
	require.Len(t, g.Targets, 3)

	assert.Equal(t, ir.TokenRef("goblin"), g.Targets[0].Token.ID)
	assert.True(t, g.Targets[0].OK)
	assert.True(t, g.Targets[0].Hit)
	assert.InDelta(t, 3.0, g.Targets[0].Distance, 1e-9)
	assert.False(t, g.Targets[0].Occupied)

	assert.Equal(t, ir.TokenRef("ghost"), g.Targets[1].Token.ID)
	assert.False(t, g.Targets[1].OK)
	assert.Equal(t, ir.DistanceUnknown, g.Targets[1].Distance)

	assert.False(t, g.Targets[2].Hit)
	assert.True(t, g.Targets[2].Occupied)
	assert.InDelta(t, 5.0, g.Targets[2].Distance, 1e-9)

	assert.Nil(t, g.FakeSource)
}

func TestResolve_ForceMiss(t *testing.T) {
	rec := &ir.ActionRecord{
		Source:     "hero",
		AllTargets: []ir.TokenRef{"goblin"},
		HitTargets: []ir.TokenRef{"goblin"},
		ForceMiss:  true,
	}
	g := Resolve(resolveScene(), rec, nil, Options{})
	assert.False(t, g.Targets[0].Hit)
}

func TestResolve_EdgeVariant(t *testing.T) {
	rec := &ir.ActionRecord{Source: "hero", AllTargets: []ir.TokenRef{"ogre"}}
	g := Resolve(resolveScene(), rec, nil, Options{EdgeDistance: true})
	assert.InDelta(t, 5.0, g.Targets[0].Distance, 1e-9)
}

func TestResolve_FakeSource(t *testing.T) {
	rec := &ir.ActionRecord{Source: "hero", NormalizedName: "fireball"}
	def := &ir.AnimationDefinition{Layers: ir.Layers{Secondary: &ir.LayerSpec{File: "x", AnimationSource: true}}}

	g := Resolve(resolveScene(), rec, def, Options{Rand: fixedRand(0.5)})
	require.NotNil(t, g.FakeSource)
	assert.Equal(t, ir.Point{X: 500, Y: 500}, *g.FakeSource)

	rec.NormalizedName = "lightningbolt"
	g = Resolve(resolveScene(), rec, def, Options{Rand: fixedRand(0.5)})
	assert.Nil(t, g.FakeSource, "no prior effect falls back to the source token")
}

func TestResolve_NoScene(t *testing.T) {
	rec := &ir.ActionRecord{Source: "hero", AllTargets: []ir.TokenRef{"goblin"}}
	g := Resolve(nil, rec, nil, Options{})

	assert.False(t, g.GridOK)
	assert.False(t, g.SourceOK)
	require.Len(t, g.Targets, 1)
	assert.Equal(t, ir.DistanceUnknown, g.Targets[0].Distance)
}

func TestResolve_NoGrid(t *testing.T) {
	scene := host.NewMemoryScene(host.SceneData{
		ID:     "gridless",
		Tokens: []ir.Token{token("hero", 0, 0, 1, 1), token("goblin", 300, 0, 1, 1)},
	})
	rec := &ir.ActionRecord{Source: "hero", AllTargets: []ir.TokenRef{"goblin"}}

	g := Resolve(scene, rec, nil, Options{})
	assert.False(t, g.GridOK)
	assert.True(t, g.Targets[0].OK)
	assert.Equal(t, ir.DistanceUnknown, g.Targets[0].Distance)
}

func TestTemplateWidth(t *testing.T) {
	assert.Equal(t, 8.0, TemplateWidth(&ir.TemplateData{Shape: "circle", Distance: 20}, grid555, true))
	assert.Equal(t, 3.0, TemplateWidth(&ir.TemplateData{Shape: "cone", Distance: 15}, grid555, true))
	assert.Equal(t, 1.0, TemplateWidth(&ir.TemplateData{Shape: "circle", Distance: 20}, ir.Grid{}, false))
	assert.Equal(t, 1.0, TemplateWidth(&ir.TemplateData{Shape: "ray"}, grid555, true))
}

func TestResolve_Template(t *testing.T) {
	rec := &ir.ActionRecord{
		Source:   "hero",
		Template: &ir.TemplateData{ID: "tpl-1", Shape: "circle", X: 500, Y: 500, Distance: 20},
	}
	g := Resolve(resolveScene(), rec, nil, Options{})
	assert.Equal(t, 8.0, g.TemplateWidth)
	assert.Empty(t, g.Targets)
}
