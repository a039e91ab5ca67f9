package ir

// TokenRef identifies a token on the active scene.
type TokenRef string

// RollPhase identifies which step of a multi-step resolution an event represents.
type RollPhase string

const (
	RollPhaseAttack RollPhase = "attack"
	RollPhaseDamage RollPhase = "damage"
	RollPhasePass   RollPhase = "pass"
)

// ValidRollPhases defines allowed roll phases.
var ValidRollPhases = map[RollPhase]bool{
	RollPhaseAttack: true,
	RollPhaseDamage: true,
	RollPhasePass:   true,
}

// ActionRecord is the canonical description of one in-session action.
//
// Records are built by a per-system adapter and discarded after dispatch.
// NormalizedName is always normalize.Name(ItemName); HitTargets is always a
// subset of AllTargets.
type ActionRecord struct {
	SystemID  string `json:"system_id" yaml:"system_id"`
	UserID    string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	MessageID string `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	SceneID   string `json:"scene_id" yaml:"scene_id"`

	// Origin is the identity used to correlate and deduplicate effects
	// belonging to one action (usually the item instance id).
	Origin string `json:"origin" yaml:"origin"`

	Source     TokenRef   `json:"source" yaml:"source"`
	AllTargets []TokenRef `json:"all_targets" yaml:"all_targets"`
	HitTargets []TokenRef `json:"hit_targets" yaml:"hit_targets"`

	ItemName       string    `json:"item_name" yaml:"item_name"`
	NormalizedName string    `json:"normalized_name" yaml:"normalized_name"`
	RollPhase      RollPhase `json:"roll_phase" yaml:"roll_phase"`
	HasAttack      bool      `json:"has_attack" yaml:"has_attack"`
	HasDamage      bool      `json:"has_damage" yaml:"has_damage"`

	// IsActiveEffectTrigger marks on-apply triggers. It affects routing only.
	IsActiveEffectTrigger bool `json:"is_active_effect_trigger" yaml:"is_active_effect_trigger"`

	// Template is present only for template-based abilities.
	Template *TemplateData `json:"template,omitempty" yaml:"template,omitempty"`

	// Destination is the landing point for teleport-style presets.
	Destination *Point `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Kill suppresses playback for this item (item-level kill switch).
	Kill bool `json:"kill,omitempty" yaml:"kill,omitempty"`

	// PresetType and PresetOverride carry item-level preset flags.
	PresetType     PresetType `json:"preset_type,omitempty" yaml:"preset_type,omitempty"`
	PresetOverride bool       `json:"preset_override,omitempty" yaml:"preset_override,omitempty"`

	ForceMiss bool `json:"force_miss,omitempty" yaml:"force_miss,omitempty"`
	Critical  bool `json:"critical,omitempty" yaml:"critical,omitempty"`
	Fumble    bool `json:"fumble,omitempty" yaml:"fumble,omitempty"`

	// Reach is the melee reach in grid units (0 = default reach).
	Reach float64 `json:"reach,omitempty" yaml:"reach,omitempty"`

	// Sound is an optional item sound played alongside the animation.
	Sound *SoundCue `json:"sound,omitempty" yaml:"sound,omitempty"`
}

// IsHit reports whether target is in HitTargets.
func (r *ActionRecord) IsHit(target TokenRef) bool {
	for _, t := range r.HitTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TemplateData describes a finalized area template.
type TemplateData struct {
	ID        string  `json:"id" yaml:"id"`
	Shape     string  `json:"shape" yaml:"shape"` // "circle", "cone", "ray", "rect"
	X         float64 `json:"x" yaml:"x"`         // origin in pixels
	Y         float64 `json:"y" yaml:"y"`
	Distance  float64 `json:"distance" yaml:"distance"` // scene units
	Direction float64 `json:"direction,omitempty" yaml:"direction,omitempty"`
	Width     float64 `json:"width,omitempty" yaml:"width,omitempty"`
}

// SoundCue references an audio asset with a start delay.
type SoundCue struct {
	File    string  `json:"file" yaml:"file" jsonschema:"required"`
	Volume  float64 `json:"volume" yaml:"volume"`
	DelayMs int     `json:"delay_ms" yaml:"delay_ms"`
}

// MenuKind is the behavioral discriminator a definition is grouped by.
type MenuKind string

const (
	MenuMelee          MenuKind = "melee"
	MenuRange          MenuKind = "range"
	MenuOnToken        MenuKind = "ontoken"
	MenuAura           MenuKind = "aura"
	MenuTemplateFX     MenuKind = "templatefx"
	MenuPreset         MenuKind = "preset"
	MenuHealing        MenuKind = "healing"
	MenuCreatureAttack MenuKind = "creatureattack"
	MenuStatic         MenuKind = "static"
)

// ValidMenus defines allowed menu kinds.
var ValidMenus = map[MenuKind]bool{
	MenuMelee:          true,
	MenuRange:          true,
	MenuOnToken:        true,
	MenuAura:           true,
	MenuTemplateFX:     true,
	MenuPreset:         true,
	MenuHealing:        true,
	MenuCreatureAttack: true,
	MenuStatic:         true,
}

// PresetType refines MenuPreset into sub-behaviors.
type PresetType string

const (
	PresetTeleportation PresetType = "teleportation"
	PresetProToTemp     PresetType = "proToTemp"
	PresetThunderwave   PresetType = "thunderwave"
	PresetExplosion     PresetType = "explosion"
	PresetDualAttach    PresetType = "dualattach"
)

// ValidPresetTypes defines allowed preset types.
var ValidPresetTypes = map[PresetType]bool{
	PresetTeleportation: true,
	PresetProToTemp:     true,
	PresetThunderwave:   true,
	PresetExplosion:     true,
	PresetDualAttach:    true,
}

// MatchKind says what a definition's MatchKey is compared against.
type MatchKind string

const (
	MatchName     MatchKind = "name"
	MatchCategory MatchKind = "category"
	MatchPreset   MatchKind = "preset"
)

// AnimationDefinition maps a match key to one or more effect layers.
type AnimationDefinition struct {
	ID         string     `json:"id" jsonschema:"required"`
	MatchKey   string     `json:"match_key" jsonschema:"required"`
	MatchKind  MatchKind  `json:"match_kind" jsonschema:"required,enum=name,enum=category,enum=preset"`
	Menu       MenuKind   `json:"menu" jsonschema:"required"`
	PresetType PresetType `json:"preset_type,omitempty"`
	Layers     Layers     `json:"layers" jsonschema:"required"`

	// Enabled is the override flag. A disabled entry stays registered but
	// never matches.
	Enabled bool `json:"enabled"`
}

// IsTemplateAnimation reports whether the definition plays against an area
// template rather than target tokens.
func (d *AnimationDefinition) IsTemplateAnimation() bool {
	if d.Menu == MenuTemplateFX {
		return true
	}
	return d.Menu == MenuPreset && (d.PresetType == PresetProToTemp || d.PresetType == PresetThunderwave)
}

// IsTeleport reports whether the definition is a teleportation preset.
func (d *AnimationDefinition) IsTeleport() bool {
	return d.Menu == MenuPreset && d.PresetType == PresetTeleportation
}

// Layers holds the optional source, secondary and target layers.
type Layers struct {
	Source    *LayerSpec `json:"source,omitempty"`
	Secondary *LayerSpec `json:"secondary,omitempty"`
	Target    *LayerSpec `json:"target,omitempty"`
}

// Count returns the number of configured layers.
func (l Layers) Count() int {
	n := 0
	for _, layer := range []*LayerSpec{l.Source, l.Secondary, l.Target} {
		if layer != nil {
			n++
		}
	}
	return n
}

// Anchor is the normalized anchor point of an effect asset.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayerSpec is the fully specified option set of one effect layer.
// Defaults are applied at compile time; nothing here is optional at dispatch.
type LayerSpec struct {
	File  string    `json:"file" jsonschema:"required"`
	Sound *SoundCue `json:"sound,omitempty"`

	Anchor        Anchor  `json:"anchor"`
	Radius        bool    `json:"radius"`
	Size          float64 `json:"size"`
	AddTokenWidth bool    `json:"add_token_width"`
	Elevation     float64 `json:"elevation"`
	Absolute      bool    `json:"absolute"`

	FadeInMs  int     `json:"fade_in_ms"`
	FadeOutMs int     `json:"fade_out_ms"`
	Opacity   float64 `json:"opacity"`

	Repeat        int     `json:"repeat"`
	RepeatDelayMs int     `json:"repeat_delay_ms"`
	PlaybackRate  float64 `json:"playback_rate"`
	ZIndex        int     `json:"z_index"`

	// Wait serializes following phases behind this layer; otherwise DelayMs
	// is a fixed delay before proceeding.
	Wait    bool `json:"wait"`
	DelayMs int  `json:"delay_ms"`

	Masked           bool `json:"masked"`
	Persistent       bool `json:"persistent"`
	UnbindVisibility bool `json:"unbind_visibility"`
	UnbindAlpha      bool `json:"unbind_alpha"`

	// Complete marks assets whose last frame already fades out.
	Complete bool `json:"complete"`

	// AnimationSource originates the layer from a prior same-named effect.
	AnimationSource bool `json:"animation_source"`
	RotateSource    bool `json:"rotate_source"`

	// MinRange and MaxRange make the layer range-dependent (grid units, 0 = unbounded).
	MinRange float64 `json:"min_range"`
	MaxRange float64 `json:"max_range"`
}

// RangeDependent reports whether the layer needs a determinable distance.
func (l *LayerSpec) RangeDependent() bool {
	return l.MinRange > 0 || l.MaxRange > 0
}

// Category is an ordered, named set of normalized item names mapped to a menu.
type Category struct {
	Name    string   `json:"name" jsonschema:"required"`
	Menu    MenuKind `json:"menu" jsonschema:"required"`
	Members []string `json:"members" jsonschema:"required"`
}

// Contains reports whether the normalized name is a member.
func (c *Category) Contains(normalizedName string) bool {
	for _, m := range c.Members {
		if m == normalizedName {
			return true
		}
	}
	return false
}

// Catalog is the compiled form of an animation catalog.
// Categories keep declaration order; it decides category priority.
type Catalog struct {
	Version     string                `json:"version"`
	Definitions []AnimationDefinition `json:"definitions" jsonschema:"required"`
	Categories  []Category            `json:"categories"`
}
