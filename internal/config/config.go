// Package config loads the immutable configuration snapshot threaded through
// every dispatch.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/fxdispatch/internal/normalize"
)

// Snapshot is the configuration in force for one dispatch.
//
// A Snapshot is a value: the engine receives it once per invocation and
// never reads settings from anywhere else. Fields use FXD_ environment
// variables; yaml tags let scenarios override them.
type Snapshot struct {
	// Enabled is the global switch. When false every dispatch is suppressed.
	Enabled bool `env:"FXD_ENABLED" envDefault:"true" yaml:"enabled"`

	// PlayOnDamage moves playback from the attack roll to the damage roll.
	PlayOnDamage bool `env:"FXD_PLAY_ON_DAMAGE" yaml:"play_on_damage"`

	// PlayOnMiss places missed targets at a miss spot. When false, missed
	// targets get no secondary or target placements.
	PlayOnMiss bool `env:"FXD_PLAY_ON_MISS" envDefault:"true" yaml:"play_on_miss"`

	// Debug turns off soft-fail in the renderer.
	Debug bool `env:"FXD_DEBUG" yaml:"debug"`

	// GlobalDelay holds every batch back before emission.
	GlobalDelay time.Duration `env:"FXD_GLOBAL_DELAY" envDefault:"0s" yaml:"global_delay"`

	// ModuleName is the identifier renderers attribute batches to.
	ModuleName string `env:"FXD_MODULE_NAME" envDefault:"fxdispatch" yaml:"module_name"`

	// LocalUserID is the session user this client acts for.
	LocalUserID string `env:"FXD_LOCAL_USER" yaml:"local_user_id"`

	// EdgeDistanceSystems lists rule systems measured edge-to-edge.
	EdgeDistanceSystems []string `env:"FXD_EDGE_DISTANCE_SYSTEMS" envSeparator:"," envDefault:"pf1" yaml:"edge_distance_systems"`

	// ExcludedItems lists item names that never animate.
	ExcludedItems []string `env:"FXD_EXCLUDED_ITEMS" envSeparator:"," yaml:"excluded_items"`

	// CriticalFile and FumbleFile are overlay assets for critical hits and fumbles.
	CriticalFile string `env:"FXD_CRITICAL_FILE" yaml:"critical_file"`
	FumbleFile   string `env:"FXD_FUMBLE_FILE" yaml:"fumble_file"`
}

// Default returns the snapshot used when no environment is set.
func Default() Snapshot {
	return Snapshot{
		Enabled:             true,
		PlayOnMiss:          true,
		ModuleName:          "fxdispatch",
		EdgeDistanceSystems: []string{"pf1"},
	}
}

// Load parses the snapshot from the process environment.
func Load() (Snapshot, error) {
	s, err := env.ParseAs[Snapshot]()
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// LoadFrom parses the snapshot from an explicit environment map.
func LoadFrom(environ map[string]string) (Snapshot, error) {
	var s Snapshot
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Snapshot{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// SoftFail reports whether renderers should swallow asset errors.
func (s Snapshot) SoftFail() bool {
	return !s.Debug
}

// IsExcluded reports whether the normalized item name is excluded.
// Entries are compared by their normalized form.
func (s Snapshot) IsExcluded(normalizedName string) bool {
	for _, item := range s.ExcludedItems {
		if normalize.Name(item) == normalizedName {
			return true
		}
	}
	return false
}

// UsesEdgeDistance reports whether targets of this rule system are measured
// edge-to-edge rather than by multi-cell minimum distance.
func (s Snapshot) UsesEdgeDistance(systemID string) bool {
	for _, sys := range s.EdgeDistanceSystems {
		if sys == systemID {
			return true
		}
	}
	return false
}
