package ir

// Point is a pixel position on the scene canvas.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Token is the geometry of a token as reported by the host.
// X and Y are the pixel position of the top-left corner; Width and Height are
// the footprint in grid cells.
type Token struct {
	ID        TokenRef `json:"id" yaml:"id"`
	X         float64  `json:"x" yaml:"x"`
	Y         float64  `json:"y" yaml:"y"`
	Width     float64  `json:"width" yaml:"width"`
	Height    float64  `json:"height" yaml:"height"`
	Elevation float64  `json:"elevation,omitempty" yaml:"elevation,omitempty"`
}

// DiagonalRule selects how grid distance counts diagonal steps.
type DiagonalRule string

const (
	// Diagonal555 counts every diagonal step as one cell.
	Diagonal555 DiagonalRule = "555"
	// Diagonal5105 counts every second diagonal step as two cells.
	Diagonal5105 DiagonalRule = "5105"
	// DiagonalEuclidean measures the straight-line cell distance.
	DiagonalEuclidean DiagonalRule = "euclidean"
)

// Grid describes the scene grid.
type Grid struct {
	Size     float64      `json:"size" yaml:"size"`         // pixels per cell
	Distance float64      `json:"distance" yaml:"distance"` // scene units per cell
	Diagonal DiagonalRule `json:"diagonal,omitempty" yaml:"diagonal,omitempty"`
}

// Valid reports whether the grid can be used for measurement.
func (g Grid) Valid() bool {
	return g.Size > 0 && g.Distance > 0
}

// EffectInstance is an effect currently rendered on a scene.
type EffectInstance struct {
	Name   string   `json:"name" yaml:"name"`
	Origin string   `json:"origin" yaml:"origin"`
	Target TokenRef `json:"target,omitempty" yaml:"target,omitempty"`
	X      float64  `json:"x" yaml:"x"` // center in pixels
	Y      float64  `json:"y" yaml:"y"`
	Width  float64  `json:"width" yaml:"width"` // pixels
	Height float64  `json:"height" yaml:"height"`
}

// Geometry is the resolved spatial state for one dispatch.
type Geometry struct {
	GridSize float64 `json:"grid_size"`
	GridOK   bool    `json:"grid_ok"`

	Source   Token `json:"source"`
	SourceOK bool  `json:"source_ok"`

	Targets []TargetGeometry `json:"targets"`

	// FakeSource is the synthesized origin for AnimationSource layers.
	FakeSource *Point `json:"fake_source,omitempty"`

	// TemplateWidth is the template footprint in grid cells, 0 without a
	// template.
	TemplateWidth float64 `json:"template_width,omitempty"`
}

// TargetGeometry is the resolved state of one target, in AllTargets order.
type TargetGeometry struct {
	Token Token `json:"token"`
	OK    bool  `json:"ok"`

	// Distance is in grid units; -1 means undeterminable.
	Distance float64 `json:"distance"`
	Hit      bool    `json:"hit"`

	// Occupied is true when the scene already shows an effect from the same
	// origin on this target.
	Occupied bool `json:"occupied"`
}

// DistanceUnknown is the sentinel for an undeterminable distance.
const DistanceUnknown = -1.0
