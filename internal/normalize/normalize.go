package normalize

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/fxdispatch/internal/ir"
)

// ErrNotApplicable is the terminal signal for events that never animate:
// long-rest notices, events owned by another client, records missing an item
// or a source token. It is expected, not a failure.
var ErrNotApplicable = errors.New("not applicable")

func notApplicable(reason string) error {
	return fmt.Errorf("%w: %s", ErrNotApplicable, reason)
}

// IsNotApplicable reports whether err is (or wraps) ErrNotApplicable.
func IsNotApplicable(err error) bool {
	return errors.Is(err, ErrNotApplicable)
}

// Event is a rule-system-native event as delivered by the host.
//
// The envelope fields are common to every system; Payload holds the native
// shape that only the matching Adapter understands.
type Event struct {
	System       string         `json:"system" yaml:"system"`
	UserID       string         `json:"user_id" yaml:"user_id"`
	MessageID    string         `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	SceneID      string         `json:"scene_id" yaml:"scene_id"`
	ActiveEffect bool           `json:"active_effect,omitempty" yaml:"active_effect,omitempty"`
	Payload      map[string]any `json:"payload" yaml:"payload"`
}

// Adapter maps one rule system's native payload onto an ActionRecord.
//
// Extract fills the system-specific fields only: item, tokens, roll phase and
// hit partition. Envelope fields and NormalizedName are filled by the
// Normalizer. Returning ErrNotApplicable discards the event.
type Adapter interface {
	System() string
	Extract(ev Event) (ir.ActionRecord, error)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAdapter registers an adapter, replacing any adapter for the same system.
func WithAdapter(a Adapter) Option {
	return func(n *Normalizer) {
		n.adapters[a.System()] = a
	}
}

// WithOriginGenerator overrides how origin identities are minted for items
// that carry none. Tests use it for deterministic output.
func WithOriginGenerator(gen func() string) Option {
	return func(n *Normalizer) {
		n.newOrigin = gen
	}
}

// Normalizer converts native events into ActionRecords.
//
// Thread-safety: a Normalizer is immutable after construction and safe for
// concurrent use.
type Normalizer struct {
	localUser string
	adapters  map[string]Adapter
	fallback  Adapter
	newOrigin func() string
}

// New creates a Normalizer for the given local session user.
//
// Every client of a multi-client session receives the same event; only the
// client whose user originated it proceeds. An empty localUser disables the
// check (single-client tools such as the CLI).
func New(localUser string, opts ...Option) *Normalizer {
	n := &Normalizer{
		localUser: localUser,
		adapters:  make(map[string]Adapter),
		fallback:  GenericAdapter{},
		newOrigin: uuid.NewString,
	}
	for _, a := range DefaultAdapters() {
		n.adapters[a.System()] = a
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts ev into a complete ActionRecord or returns
// ErrNotApplicable. It never panics on malformed payloads.
func (n *Normalizer) Normalize(ev Event) (ir.ActionRecord, error) {
	if n.localUser != "" && ev.UserID != n.localUser {
		return ir.ActionRecord{}, notApplicable("event belongs to another user")
	}

	adapter, ok := n.adapters[ev.System]
	if !ok {
		adapter = n.fallback
	}

	rec, err := adapter.Extract(ev)
	if err != nil {
		if IsNotApplicable(err) {
			return ir.ActionRecord{}, err
		}
		return ir.ActionRecord{}, notApplicable(fmt.Sprintf("%s payload: %v", ev.System, err))
	}

	if rec.ItemName == "" {
		return ir.ActionRecord{}, notApplicable("missing item")
	}
	if rec.Source == "" {
		return ir.ActionRecord{}, notApplicable("missing source token")
	}

	rec.SystemID = ev.System
	rec.UserID = ev.UserID
	rec.MessageID = ev.MessageID
	rec.SceneID = ev.SceneID
	rec.IsActiveEffectTrigger = ev.ActiveEffect
	rec.NormalizedName = Name(rec.ItemName)
	if rec.Origin == "" {
		rec.Origin = n.newOrigin()
	}
	if rec.RollPhase == "" || !ir.ValidRollPhases[rec.RollPhase] {
		rec.RollPhase = ir.RollPhasePass
	}
	if rec.AllTargets == nil {
		rec.AllTargets = []ir.TokenRef{}
	}
	rec.HitTargets = subset(rec.HitTargets, rec.AllTargets)

	return rec, nil
}

// subset keeps the hits that are also targets, in AllTargets order.
func subset(hits, all []ir.TokenRef) []ir.TokenRef {
	inHits := make(map[ir.TokenRef]bool, len(hits))
	for _, h := range hits {
		inHits[h] = true
	}
	out := make([]ir.TokenRef, 0, len(hits))
	for _, t := range all {
		if inHits[t] {
			out = append(out, t)
			delete(inHits, t)
		}
	}
	return out
}

// decodePayload maps a loosely typed payload onto a typed adapter struct.
func decodePayload(payload map[string]any, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
