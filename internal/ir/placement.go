package ir

// Phase orders placements within one sequence.
type Phase string

const (
	PhaseOverlay   Phase = "overlay"
	PhaseSource    Phase = "source"
	PhaseSecondary Phase = "secondary"
	PhaseTarget    Phase = "target"
)

// PhaseRank returns the position of a phase in the emission order.
func PhaseRank(p Phase) int {
	switch p {
	case PhaseOverlay:
		return 0
	case PhaseSource:
		return 1
	case PhaseSecondary:
		return 2
	case PhaseTarget:
		return 3
	default:
		return 4
	}
}

// LocationKind says how a placement is positioned.
type LocationKind string

const (
	LocationToken    LocationKind = "token"
	LocationMissSpot LocationKind = "miss_spot"
	LocationPoint    LocationKind = "point"
	LocationTemplate LocationKind = "template"
)

// Location is a resolved placement position.
//
// A miss spot names the target it misses but is never the literal token
// position; the renderer picks a near-miss point around it.
type Location struct {
	Kind     LocationKind `json:"kind"`
	Token    TokenRef     `json:"token,omitempty"`
	Point    *Point       `json:"point,omitempty"`
	Template string       `json:"template,omitempty"`
}

// TimingMode distinguishes a fixed delay from a wait-until-finished point.
type TimingMode string

const (
	TimingDelay TimingMode = "delay"
	TimingWait  TimingMode = "wait"
)

// Timing is the resolved timing of one placement.
type Timing struct {
	Mode    TimingMode `json:"mode"`
	DelayMs int        `json:"delay_ms"`
}

// Placement is one compiled effect instruction handed to the renderer.
type Placement struct {
	Phase  Phase  `json:"phase"`
	File   string `json:"file"`
	Origin string `json:"origin"`
	Name   string `json:"name,omitempty"`

	Location Location  `json:"location"`
	From     *Location `json:"from,omitempty"`

	AttachTo       TokenRef `json:"attach_to,omitempty"`
	Persist        bool     `json:"persist,omitempty"`
	BindVisibility bool     `json:"bind_visibility,omitempty"`
	BindAlpha      bool     `json:"bind_alpha,omitempty"`

	Anchor    Anchor  `json:"anchor"`
	Size      float64 `json:"size"`
	Elevation float64 `json:"elevation"`
	Absolute  bool    `json:"absolute,omitempty"`

	FadeInMs int `json:"fade_in_ms"`
	// FadeOutMs is nil when the asset fades itself out.
	FadeOutMs *int `json:"fade_out_ms,omitempty"`

	Opacity       float64 `json:"opacity"`
	Repeat        int     `json:"repeat"`
	RepeatDelayMs int     `json:"repeat_delay_ms"`
	PlaybackRate  float64 `json:"playback_rate"`
	ZIndex        int     `json:"z_index"`

	Timing Timing `json:"timing"`

	Mask          TokenRef  `json:"mask,omitempty"`
	RotateTowards TokenRef  `json:"rotate_towards,omitempty"`
	Sound         *SoundCue `json:"sound,omitempty"`
}

// TargetToken returns the token a placement lands on, if any.
func (p *Placement) TargetToken() TokenRef {
	if p.AttachTo != "" {
		return p.AttachTo
	}
	return p.Location.Token
}
