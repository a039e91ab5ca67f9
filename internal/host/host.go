package host

import (
	"github.com/roach88/fxdispatch/internal/ir"
)

// Scene is the read-only query surface of one scene.
//
// Missing data is reported through the ok results, never by panicking.
type Scene interface {
	ID() string

	// Grid returns the scene grid. ok is false when the scene has no
	// usable grid.
	Grid() (grid ir.Grid, ok bool)

	// Token returns the geometry of a token on this scene.
	Token(ref ir.TokenRef) (token ir.Token, ok bool)

	// LatestEffect returns the most recently added effect with the given name.
	LatestEffect(name string) (effect ir.EffectInstance, ok bool)

	// HasEffect reports whether any effect from origin is attached to target.
	HasEffect(origin string, target ir.TokenRef) bool
}

// Scenes resolves scenes by id.
type Scenes interface {
	Scene(id string) (Scene, bool)
}

// Level is the severity of a user notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notifier surfaces a message to the local user.
type Notifier interface {
	Notify(level Level, message string)
}
