package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/fxdispatch/internal/compiler"
	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/ir"
)

// Registry indexes a catalog by match key.
//
// Lookups are read-only and safe for concurrent use. The only mutable state
// is the set of invalid definitions already reported.
type Registry struct {
	catalog ir.Catalog
	hash    string

	byName     map[string]*ir.AnimationDefinition
	byPreset   map[ir.PresetType]*ir.AnimationDefinition
	byCategory map[string]*ir.AnimationDefinition

	invalid  map[string][]compiler.ValidationError
	notifier host.Notifier

	mu       sync.Mutex
	notified map[string]bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNotifier sets where configuration errors are reported.
func WithNotifier(n host.Notifier) RegistryOption {
	return func(r *Registry) {
		r.notifier = n
	}
}

// NewRegistry indexes cat. The first definition for a match key wins.
func NewRegistry(cat ir.Catalog, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog: ir.Catalog{
			Version:     cat.Version,
			Definitions: make([]ir.AnimationDefinition, len(cat.Definitions)),
			Categories:  make([]ir.Category, len(cat.Categories)),
		},
		byName:     make(map[string]*ir.AnimationDefinition),
		byPreset:   make(map[ir.PresetType]*ir.AnimationDefinition),
		byCategory: make(map[string]*ir.AnimationDefinition),
		invalid:    make(map[string][]compiler.ValidationError),
		notified:   make(map[string]bool),
	}
	copy(r.catalog.Definitions, cat.Definitions)
	copy(r.catalog.Categories, cat.Categories)

	for _, opt := range opts {
		opt(r)
	}

	for i := range r.catalog.Definitions {
		def := &r.catalog.Definitions[i]
		if errs := compiler.Validate(def); len(errs) > 0 {
			r.invalid[def.ID] = errs
		}

		var index map[string]*ir.AnimationDefinition
		switch def.MatchKind {
		case ir.MatchName:
			index = r.byName
		case ir.MatchCategory:
			index = r.byCategory
		case ir.MatchPreset:
			if _, exists := r.byPreset[def.PresetType]; !exists {
				r.byPreset[def.PresetType] = def
			}
			continue
		default:
			continue
		}
		if _, exists := index[def.MatchKey]; !exists {
			index[def.MatchKey] = def
		}
	}

	r.hash = ir.MustCatalogHash(r.catalog)
	return r
}

// ByName returns the definition keyed by a normalized item name.
func (r *Registry) ByName(normalizedName string) (*ir.AnimationDefinition, bool) {
	def, ok := r.byName[normalizedName]
	return def, ok
}

// ByCategory returns the definition a category plays.
func (r *Registry) ByCategory(name string) (*ir.AnimationDefinition, bool) {
	def, ok := r.byCategory[name]
	return def, ok
}

// ByPreset returns the definition registered for a preset type.
func (r *Registry) ByPreset(pt ir.PresetType) (*ir.AnimationDefinition, bool) {
	def, ok := r.byPreset[pt]
	return def, ok
}

// Categories returns the categories in declaration order.
func (r *Registry) Categories() []ir.Category {
	return r.catalog.Categories
}

// Catalog returns the indexed catalog.
func (r *Registry) Catalog() ir.Catalog {
	return r.catalog
}

// Hash returns the content hash of the catalog.
func (r *Registry) Hash() string {
	return r.hash
}

// Invalid returns the validation errors of a definition, if any.
func (r *Registry) Invalid(id string) []compiler.ValidationError {
	return r.invalid[id]
}

// Usable reports whether def may be played: it must be enabled and valid.
// The first time an invalid definition is asked about, the notifier is told.
func (r *Registry) Usable(def *ir.AnimationDefinition) bool {
	if def == nil || !def.Enabled {
		return false
	}
	errs, bad := r.invalid[def.ID]
	if !bad {
		return true
	}
	r.notifyInvalid(def.ID, errs)
	return false
}

func (r *Registry) notifyInvalid(id string, errs []compiler.ValidationError) {
	r.mu.Lock()
	first := !r.notified[id]
	r.notified[id] = true
	r.mu.Unlock()

	if !first || r.notifier == nil {
		return
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	r.notifier.Notify(host.LevelWarn,
		fmt.Sprintf("animation %s is misconfigured and will be skipped: %s", id, strings.Join(msgs, "; ")))
}
