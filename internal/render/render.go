// Package render defines the renderer surface the engine hands compiled
// placements to, plus an in-process recorder and a scene mirror that keeps
// an in-memory scene in step with what was rendered.
package render

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/fxdispatch/internal/ir"
)

// Batch is one dispatch worth of placements, in playback order.
type Batch struct {
	DispatchID string         `json:"dispatch_id"`
	ModuleName string         `json:"module_name"`
	SoftFail   bool           `json:"soft_fail"`
	SceneID    string         `json:"scene_id"`
	Origin     string         `json:"origin"`
	Placements []ir.Placement `json:"placements"`
}

// Sound is an item sound due now.
type Sound struct {
	SceneID string      `json:"scene_id"`
	Origin  string      `json:"origin"`
	Cue     ir.SoundCue `json:"cue"`
}

// Renderer plays batches and sounds. Implementations must be safe for
// concurrent use.
type Renderer interface {
	Render(ctx context.Context, b Batch) error
	PlaySound(ctx context.Context, s Sound) error
}

// ErrClosed is returned by renderers that no longer accept work.
var ErrClosed = errors.New("renderer closed")

// Recorder keeps every batch and sound it receives. Set Err to make calls
// fail after recording nothing.
type Recorder struct {
	mu      sync.Mutex
	batches []Batch
	sounds  []Sound

	Err error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Render(_ context.Context, b Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	b.Placements = append([]ir.Placement(nil), b.Placements...)
	r.batches = append(r.batches, b)
	return nil
}

func (r *Recorder) PlaySound(_ context.Context, s Sound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sounds = append(r.sounds, s)
	return nil
}

// Batches returns a copy of the recorded batches.
func (r *Recorder) Batches() []Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Batch(nil), r.batches...)
}

// Sounds returns a copy of the recorded sounds.
func (r *Recorder) Sounds() []Sound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sound(nil), r.sounds...)
}

// Placements returns every recorded placement across batches.
func (r *Recorder) Placements() []ir.Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ir.Placement
	for _, b := range r.batches {
		out = append(out, b.Placements...)
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = nil
	r.sounds = nil
}

// Fanout renders to several renderers in order. The first error wins but
// every renderer is still called.
type Fanout []Renderer

func (f Fanout) Render(ctx context.Context, b Batch) error {
	var first error
	for _, r := range f {
		if err := r.Render(ctx, b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) PlaySound(ctx context.Context, s Sound) error {
	var first error
	for _, r := range f {
		if err := r.PlaySound(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
