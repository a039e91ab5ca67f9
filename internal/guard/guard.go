// Package guard tracks per-origin playback state so the same action never
// renders twice on the same target.
package guard

import (
	"sync"

	"github.com/roach88/fxdispatch/internal/ir"
)

// State is the playback state of one origin on one scene.
type State string

const (
	// StateIdle is the state of every origin the guard has no record of.
	StateIdle State = "idle"
	// StateArmed marks an origin whose last dispatch was suppressed by a
	// kill switch. Nothing was emitted.
	StateArmed State = "armed"
	// StatePlayed marks an origin with at least one emitted placement.
	StatePlayed State = "played"
)

type key struct {
	origin string
	scene  string
}

type entry struct {
	state State

	// held are targets carrying a persistent effect from the origin. They
	// stay blocked until the host reports the effect removed.
	held map[ir.TokenRef]bool

	// sent are the targets the latest message emitted on. A redelivery of
	// that message skips them; a new message starts a fresh set.
	message string
	sent    map[ir.TokenRef]bool
}

// Guard is the process-wide playback state map.
//
// Entries are created on first emission (or suppression) for an origin and
// destroyed when the host reports the effect removed or the scene unloaded.
// Duplicates are tracked per target: a played origin still compiles for
// targets it has not reached, and a later action with the same item plays
// again on targets whose effect has already finished.
//
// Thread-safe: all methods take the guard mutex.
type Guard struct {
	mu      sync.Mutex
	entries map[key]*entry
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{
		entries: make(map[key]*entry),
	}
}

// State returns the state of origin on scene.
func (g *Guard) State(origin, scene string) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.entries[key{origin, scene}]
	if e == nil {
		return StateIdle
	}
	return e.state
}

// Arm records that a dispatch for origin was suppressed.
// Targets already played stay recorded.
func (g *Guard) Arm(origin, scene string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.entry(key{origin, scene})
	e.state = StateArmed
}

// Claim records the placements one message emits for origin and returns
// the ones still free to play. A target placement is dropped when its
// target holds a persistent effect from origin or was already played by
// the same message. The check and the record happen under one lock, so
// concurrent claims never both win a target.
//
// A sound carried by a dropped target placement moves to the next kept
// target placement. Claiming anything moves the origin to played, including
// sequences without target placements.
func (g *Guard) Claim(origin, scene, messageID string, placements []ir.Placement) []ir.Placement {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key{origin, scene}
	e := g.entries[k]

	out := make([]ir.Placement, 0, len(placements))
	var orphan *ir.SoundCue
	for _, p := range placements {
		if p.Phase == ir.PhaseTarget {
			if t := p.TargetToken(); t != "" && e.blocks(messageID, t) {
				if orphan == nil {
					orphan = p.Sound
				}
				continue
			}
			if orphan != nil && p.Sound == nil {
				p.Sound, orphan = orphan, nil
			}
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return out
	}

	e = g.entry(k)
	e.state = StatePlayed
	if e.message != messageID {
		e.message = messageID
		e.sent = make(map[ir.TokenRef]bool)
	}
	for i := range out {
		p := &out[i]
		t := p.TargetToken()
		if p.Phase != ir.PhaseTarget || t == "" {
			continue
		}
		if p.Persist {
			e.held[t] = true
		}
		if messageID != "" {
			e.sent[t] = true
		}
	}
	return out
}

// HasPlayed reports whether target is still blocked for origin, by a
// persistent effect or by the latest message.
func (g *Guard) HasPlayed(origin, scene string, target ir.TokenRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.entries[key{origin, scene}]
	return e != nil && (e.held[target] || e.sent[target])
}

// PlayedTargets returns a copy of the targets a dispatch of messageID by
// origin must skip.
func (g *Guard) PlayedTargets(origin, scene, messageID string) map[ir.TokenRef]bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[ir.TokenRef]bool)
	e := g.entries[key{origin, scene}]
	if e == nil {
		return out
	}
	for t := range e.held {
		out[t] = true
	}
	if messageID != "" && e.message == messageID {
		for t := range e.sent {
			out[t] = true
		}
	}
	return out
}

// Release handles a confirmed effect removal. With a target, only that
// target is released and the origin returns to idle once no persistent
// effect remains; with an empty target the whole origin returns to idle.
func (g *Guard) Release(origin, scene string, target ir.TokenRef) {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key{origin, scene}
	e := g.entries[k]
	if e == nil {
		return
	}
	if target != "" {
		delete(e.held, target)
		delete(e.sent, target)
		if len(e.held) > 0 {
			return
		}
	}
	delete(g.entries, k)
}

// ReleaseScene drops every entry of an unloaded scene.
// Returns the number of origins released.
func (g *Guard) ReleaseScene(scene string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for k := range g.entries {
		if k.scene == scene {
			delete(g.entries, k)
			n++
		}
	}
	return n
}

// Size returns the number of tracked origins.
//
// Used for testing and introspection.
func (g *Guard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.entries)
}

// entry returns the entry for k, creating it. Caller holds g.mu.
func (g *Guard) entry(k key) *entry {
	e := g.entries[k]
	if e == nil {
		e = &entry{
			state: StateIdle,
			held:  make(map[ir.TokenRef]bool),
			sent:  make(map[ir.TokenRef]bool),
		}
		g.entries[k] = e
	}
	return e
}

// blocks reports whether a dispatch of messageID must skip target. A nil
// entry blocks nothing.
func (e *entry) blocks(messageID string, target ir.TokenRef) bool {
	if e == nil {
		return false
	}
	if e.held[target] {
		return true
	}
	return messageID != "" && e.message == messageID && e.sent[target]
}
