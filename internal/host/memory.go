package host

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fxdispatch/internal/ir"
)

// SceneData is the serialized form of a scene.
type SceneData struct {
	ID      string              `yaml:"id"`
	Grid    *ir.Grid            `yaml:"grid,omitempty"`
	Tokens  []ir.Token          `yaml:"tokens"`
	Effects []ir.EffectInstance `yaml:"effects,omitempty"`
}

// MemoryScene is a mutable in-memory Scene.
//
// Thread-safe: all methods take the scene mutex.
type MemoryScene struct {
	mu      sync.RWMutex
	id      string
	grid    *ir.Grid
	tokens  map[ir.TokenRef]ir.Token
	effects []ir.EffectInstance
}

// NewMemoryScene builds a scene from its serialized form.
func NewMemoryScene(data SceneData) *MemoryScene {
	s := &MemoryScene{
		id:     data.ID,
		tokens: make(map[ir.TokenRef]ir.Token, len(data.Tokens)),
	}
	if data.Grid != nil {
		g := *data.Grid
		s.grid = &g
	}
	for _, t := range data.Tokens {
		s.tokens[t.ID] = t
	}
	s.effects = append(s.effects, data.Effects...)
	return s
}

// LoadScene reads a YAML scene file.
func LoadScene(path string) (*MemoryScene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()

	var data SceneData
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if data.ID == "" {
		return nil, fmt.Errorf("parse scene %s: id is required", path)
	}
	return NewMemoryScene(data), nil
}

func (s *MemoryScene) ID() string { return s.id }

func (s *MemoryScene) Grid() (ir.Grid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil || !s.grid.Valid() {
		return ir.Grid{}, false
	}
	return *s.grid, true
}

func (s *MemoryScene) Token(ref ir.TokenRef) (ir.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[ref]
	return t, ok
}

func (s *MemoryScene) LatestEffect(name string) (ir.EffectInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.effects) - 1; i >= 0; i-- {
		if s.effects[i].Name == name {
			return s.effects[i], true
		}
	}
	return ir.EffectInstance{}, false
}

func (s *MemoryScene) HasEffect(origin string, target ir.TokenRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.effects {
		if e.Origin == origin && e.Target == target {
			return true
		}
	}
	return false
}

// AddEffect records a rendered effect.
func (s *MemoryScene) AddEffect(e ir.EffectInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, e)
}

// RemoveEffects drops every effect from origin, optionally limited to one
// target. Returns the number removed.
func (s *MemoryScene) RemoveEffects(origin string, target ir.TokenRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.effects[:0]
	removed := 0
	for _, e := range s.effects {
		if e.Origin == origin && (target == "" || e.Target == target) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.effects = kept
	return removed
}

// Effects returns a copy of the current effects in insertion order.
func (s *MemoryScene) Effects() []ir.EffectInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ir.EffectInstance, len(s.effects))
	copy(out, s.effects)
	return out
}

// PutToken adds or moves a token.
func (s *MemoryScene) PutToken(t ir.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.ID] = t
}

// Stage holds the loaded scenes.
type Stage struct {
	mu     sync.RWMutex
	scenes map[string]*MemoryScene
}

// NewStage returns a stage holding the given scenes.
func NewStage(scenes ...*MemoryScene) *Stage {
	st := &Stage{scenes: make(map[string]*MemoryScene)}
	for _, s := range scenes {
		st.scenes[s.ID()] = s
	}
	return st
}

// Scene implements Scenes.
func (st *Stage) Scene(id string) (Scene, bool) {
	s, ok := st.Memory(id)
	if !ok {
		return nil, false
	}
	return s, true
}

// Memory returns the concrete scene for mutation.
func (st *Stage) Memory(id string) (*MemoryScene, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.scenes[id]
	return s, ok
}

// Put adds or replaces a scene.
func (st *Stage) Put(s *MemoryScene) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.scenes[s.ID()] = s
}

// Unload removes a scene. Reports whether it was loaded.
func (st *Stage) Unload(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.scenes[id]
	delete(st.scenes, id)
	return ok
}
