package normalize

import (
	"strings"

	"github.com/roach88/fxdispatch/internal/ir"
)

// DefaultAdapters returns the built-in adapters.
func DefaultAdapters() []Adapter {
	return []Adapter{
		Dnd5eAdapter{SystemID: "dnd5e"},
		Dnd5eAdapter{SystemID: "sw5e"},
		MidiQOLAdapter{},
		PF1Adapter{SystemID: "pf1"},
		PF1Adapter{SystemID: "D35E"},
		WFRP4eAdapter{},
		GenericAdapter{},
	}
}

// itemPayload is the item shape shared by the native payloads.
type itemPayload struct {
	UUID           string       `json:"uuid"`
	Name           string       `json:"name"`
	HasAttack      bool         `json:"has_attack"`
	HasDamage      bool         `json:"has_damage"`
	Kill           bool         `json:"kill"`
	PresetType     string       `json:"preset_type"`
	PresetOverride bool         `json:"preset_override"`
	Reach          float64      `json:"reach"`
	Sound          *ir.SoundCue `json:"sound"`
}

// apply copies the item fields onto rec.
func (it *itemPayload) apply(rec *ir.ActionRecord) {
	rec.Origin = it.UUID
	rec.ItemName = it.Name
	rec.HasAttack = it.HasAttack
	rec.HasDamage = it.HasDamage
	rec.Kill = it.Kill
	rec.PresetType = ir.PresetType(it.PresetType)
	rec.PresetOverride = it.PresetOverride
	rec.Reach = it.Reach
	rec.Sound = it.Sound
}

func tokenRefs(ids []string) []ir.TokenRef {
	refs := make([]ir.TokenRef, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			refs = append(refs, ir.TokenRef(id))
		}
	}
	return refs
}

// phaseFromText derives the roll phase from a roll type or chat flavor.
func phaseFromText(text string) ir.RollPhase {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "damage"):
		return ir.RollPhaseDamage
	case strings.Contains(lower, "attack"):
		return ir.RollPhaseAttack
	default:
		return ir.RollPhasePass
	}
}

// singleStep marks a record from a system that reports an action as one
// event. The event is the whole resolution, so it routes like an item without
// attack or damage rolls.
func singleStep(rec *ir.ActionRecord) {
	rec.RollPhase = ir.RollPhasePass
	rec.HasAttack = false
	rec.HasDamage = false
}

// Dnd5eAdapter reads core 5e-style chat messages.
// Core chat messages carry no hit information, so every target counts as hit.
type Dnd5eAdapter struct {
	SystemID string
}

type dnd5eMessage struct {
	Item     *itemPayload     `json:"item"`
	Ammo     *itemPayload     `json:"ammo"`
	Token    string           `json:"token"`
	Targets  []string         `json:"targets"`
	Flavor   string           `json:"flavor"`
	RollType string           `json:"roll_type"`
	Template *ir.TemplateData `json:"template"`
}

func (a Dnd5eAdapter) System() string { return a.SystemID }

func (a Dnd5eAdapter) Extract(ev Event) (ir.ActionRecord, error) {
	var msg dnd5eMessage
	if err := decodePayload(ev.Payload, &msg); err != nil {
		return ir.ActionRecord{}, err
	}
	if strings.Contains(msg.Flavor, "Long Rest") {
		return ir.ActionRecord{}, notApplicable("long rest")
	}

	var rec ir.ActionRecord
	item := msg.Item
	if msg.Ammo != nil {
		item = msg.Ammo
	}
	if item != nil {
		item.apply(&rec)
	}

	rollText := msg.RollType
	if rollText == "" {
		rollText = msg.Flavor
	}
	rec.RollPhase = phaseFromText(rollText)
	rec.Source = ir.TokenRef(msg.Token)
	rec.AllTargets = tokenRefs(msg.Targets)
	rec.HitTargets = rec.AllTargets
	rec.Template = msg.Template
	return rec, nil
}

// MidiQOLAdapter reads midi-qol workflows, which carry hit partitions and
// critical/fumble flags.
type MidiQOLAdapter struct{}

type midiWorkflow struct {
	Item        *itemPayload     `json:"item"`
	Ammo        *itemPayload     `json:"ammo"`
	TokenID     string           `json:"token_id"`
	Targets     []string         `json:"targets"`
	HitTargets  []string         `json:"hit_targets"`
	Stage       string           `json:"stage"` // "attack", "damage" or "complete"
	IsCritical  bool             `json:"is_critical"`
	IsFumble    bool             `json:"is_fumble"`
	ForceMiss   bool             `json:"force_miss"`
	Template    *ir.TemplateData `json:"template"`
	Destination *ir.Point        `json:"destination"`
}

func (MidiQOLAdapter) System() string { return "midi-qol" }

func (MidiQOLAdapter) Extract(ev Event) (ir.ActionRecord, error) {
	var wf midiWorkflow
	if err := decodePayload(ev.Payload, &wf); err != nil {
		return ir.ActionRecord{}, err
	}

	var rec ir.ActionRecord
	item := wf.Item
	if wf.Ammo != nil {
		item = wf.Ammo
	}
	if item != nil {
		item.apply(&rec)
	}

	switch wf.Stage {
	case "attack":
		rec.RollPhase = ir.RollPhaseAttack
	case "damage":
		rec.RollPhase = ir.RollPhaseDamage
	default:
		rec.RollPhase = ir.RollPhasePass
	}
	rec.Source = ir.TokenRef(wf.TokenID)
	rec.AllTargets = tokenRefs(wf.Targets)
	if wf.HitTargets == nil {
		rec.HitTargets = rec.AllTargets
	} else {
		rec.HitTargets = tokenRefs(wf.HitTargets)
	}
	rec.Critical = wf.IsCritical
	rec.Fumble = wf.IsFumble
	rec.ForceMiss = wf.ForceMiss
	rec.Template = wf.Template
	rec.Destination = wf.Destination
	return rec, nil
}

// PF1Adapter reads pf1-family attack cards.
type PF1Adapter struct {
	SystemID string
}

type pf1Card struct {
	Item     *itemPayload     `json:"item"`
	Token    string           `json:"token"`
	Targets  []string         `json:"targets"`
	Template *ir.TemplateData `json:"template"`
}

func (a PF1Adapter) System() string { return a.SystemID }

func (a PF1Adapter) Extract(ev Event) (ir.ActionRecord, error) {
	var card pf1Card
	if err := decodePayload(ev.Payload, &card); err != nil {
		return ir.ActionRecord{}, err
	}

	var rec ir.ActionRecord
	if card.Item != nil {
		card.Item.apply(&rec)
	}
	singleStep(&rec)
	rec.Source = ir.TokenRef(card.Token)
	rec.AllTargets = tokenRefs(card.Targets)
	rec.HitTargets = rec.AllTargets
	rec.Template = card.Template
	return rec, nil
}

// WFRP4eAdapter reads wfrp4e test results. The item lives under a key named
// after the test kind (weapon, prayer, spell, trait, skill).
type WFRP4eAdapter struct{}

type wfrpTest struct {
	Kind    string       `json:"kind"`
	Weapon  *itemPayload `json:"weapon"`
	Prayer  *itemPayload `json:"prayer"`
	Spell   *itemPayload `json:"spell"`
	Trait   *itemPayload `json:"trait"`
	Skill   *itemPayload `json:"skill"`
	Token   string       `json:"token"`
	Targets []string     `json:"targets"`
}

func (WFRP4eAdapter) System() string { return "wfrp4e" }

func (WFRP4eAdapter) Extract(ev Event) (ir.ActionRecord, error) {
	var test wfrpTest
	if err := decodePayload(ev.Payload, &test); err != nil {
		return ir.ActionRecord{}, err
	}

	var item *itemPayload
	switch test.Kind {
	case "weapon":
		item = test.Weapon
	case "prayer":
		item = test.Prayer
	case "spell", "cast":
		item = test.Spell
	case "trait":
		item = test.Trait
	case "skill":
		item = test.Skill
	default:
		return ir.ActionRecord{}, notApplicable("unsupported wfrp4e test kind " + test.Kind)
	}

	var rec ir.ActionRecord
	if item != nil {
		item.apply(&rec)
	}
	singleStep(&rec)
	rec.Source = ir.TokenRef(test.Token)
	rec.AllTargets = tokenRefs(test.Targets)
	rec.HitTargets = rec.AllTargets
	return rec, nil
}

// GenericAdapter accepts payloads already shaped like an ActionRecord.
// It serves systems without a dedicated adapter and test fixtures.
type GenericAdapter struct{}

func (GenericAdapter) System() string { return "generic" }

func (GenericAdapter) Extract(ev Event) (ir.ActionRecord, error) {
	var rec ir.ActionRecord
	if err := decodePayload(ev.Payload, &rec); err != nil {
		return ir.ActionRecord{}, err
	}
	if rec.HitTargets == nil {
		rec.HitTargets = rec.AllTargets
	}
	return rec, nil
}
