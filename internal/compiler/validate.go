package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/fxdispatch/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedIRType = "E200" // unsupported IR type for validation

	// AnimationDefinition errors (E201-E209)
	ErrEmptyLayers        = "E201" // at least one layer required
	ErrMissingFile        = "E202" // layer has no asset reference
	ErrInvalidMenu        = "E203" // unknown menu kind
	ErrInvalidPresetType  = "E204" // unknown preset type
	ErrPresetTypeRequired = "E205" // preset menu without preset_type
	ErrNegativeValue      = "E206" // negative size, repeat or timing
	ErrDuplicateKey       = "E207" // two definitions share a match key
	ErrOpacityRange       = "E209" // opacity outside [0, 1]
	ErrInvalidRange       = "E210" // min_range greater than max_range

	// Category errors (E220-E229)
	ErrCategoryNoMembers = "E220" // category has no members
	ErrCategoryEmptyName = "E221" // category member normalizes to ""
	ErrDuplicateCategory = "E222" // category declared twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports AnimationDefinition, Category and Catalog.
func Validate(v any) []ValidationError {
	switch x := v.(type) {
	case *ir.AnimationDefinition:
		return validateDefinition(x)
	case ir.AnimationDefinition:
		return validateDefinition(&x)
	case *ir.Category:
		return validateCategory(x)
	case ir.Category:
		return validateCategory(&x)
	case *ir.Catalog:
		return validateCatalog(x)
	case ir.Catalog:
		return validateCatalog(&x)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// validateDefinition validates one animation definition.
// Field paths are prefixed with the definition ID.
func validateDefinition(def *ir.AnimationDefinition) []ValidationError {
	var errs []ValidationError
	prefix := def.ID

	// E201: at least one layer
	if def.Layers.Count() == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".layers",
			Message: "at least one layer is required",
			Code:    ErrEmptyLayers,
		})
	}

	// E203: menu must be known
	if !ir.ValidMenus[def.Menu] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".menu",
			Message: fmt.Sprintf("invalid menu %q", def.Menu),
			Code:    ErrInvalidMenu,
		})
	}

	// E204/E205: preset type
	if def.PresetType != "" && !ir.ValidPresetTypes[def.PresetType] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".preset_type",
			Message: fmt.Sprintf("invalid preset type %q", def.PresetType),
			Code:    ErrInvalidPresetType,
		})
	}
	if def.Menu == ir.MenuPreset && def.PresetType == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".preset_type",
			Message: "preset menu requires a preset_type",
			Code:    ErrPresetTypeRequired,
		})
	}

	for _, slot := range []struct {
		name  string
		layer *ir.LayerSpec
	}{
		{"source", def.Layers.Source},
		{"secondary", def.Layers.Secondary},
		{"target", def.Layers.Target},
	} {
		if slot.layer != nil {
			errs = append(errs, validateLayer(slot.layer, prefix+".layers."+slot.name)...)
		}
	}

	return errs
}

func validateLayer(l *ir.LayerSpec, path string) []ValidationError {
	var errs []ValidationError

	// E202: asset reference required
	if strings.TrimSpace(l.File) == "" {
		errs = append(errs, ValidationError{
			Field:   path + ".file",
			Message: "file is required",
			Code:    ErrMissingFile,
		})
	}

	// E206: no negative sizes or timings
	negatives := []struct {
		field string
		value float64
	}{
		{"size", l.Size},
		{"repeat", float64(l.Repeat)},
		{"repeat_delay_ms", float64(l.RepeatDelayMs)},
		{"fade_in_ms", float64(l.FadeInMs)},
		{"fade_out_ms", float64(l.FadeOutMs)},
		{"delay_ms", float64(l.DelayMs)},
		{"playback_rate", l.PlaybackRate},
		{"min_range", l.MinRange},
		{"max_range", l.MaxRange},
	}
	for _, n := range negatives {
		if n.value < 0 {
			errs = append(errs, ValidationError{
				Field:   path + "." + n.field,
				Message: fmt.Sprintf("%s must not be negative, got %v", n.field, n.value),
				Code:    ErrNegativeValue,
			})
		}
	}

	// E209: opacity is a fraction
	if l.Opacity < 0 || l.Opacity > 1 {
		errs = append(errs, ValidationError{
			Field:   path + ".opacity",
			Message: fmt.Sprintf("opacity must be within [0, 1], got %v", l.Opacity),
			Code:    ErrOpacityRange,
		})
	}

	// E210: range bounds ordered
	if l.MinRange > 0 && l.MaxRange > 0 && l.MinRange > l.MaxRange {
		errs = append(errs, ValidationError{
			Field:   path + ".min_range",
			Message: fmt.Sprintf("min_range %v exceeds max_range %v", l.MinRange, l.MaxRange),
			Code:    ErrInvalidRange,
		})
	}

	return errs
}

// validateCategory validates a category's members and menu.
func validateCategory(c *ir.Category) []ValidationError {
	var errs []ValidationError
	prefix := "category/" + c.Name

	// E220: at least one member
	if len(c.Members) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".members",
			Message: "category must have at least one member",
			Code:    ErrCategoryNoMembers,
		})
	}

	// E221: members must survive normalization
	for i, m := range c.Members {
		if m == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.members[%d]", prefix, i),
				Message: "member is empty after normalization",
				Code:    ErrCategoryEmptyName,
			})
		}
	}

	// E203: menu must be known
	if !ir.ValidMenus[c.Menu] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".menu",
			Message: fmt.Sprintf("invalid menu %q", c.Menu),
			Code:    ErrInvalidMenu,
		})
	}

	return errs
}

// validateCatalog validates every definition and category plus
// cross-entry rules (duplicate keys).
func validateCatalog(c *ir.Catalog) []ValidationError {
	var errs []ValidationError

	type keyKind struct {
		kind ir.MatchKind
		key  string
	}
	seen := make(map[keyKind]string)
	for i := range c.Definitions {
		def := &c.Definitions[i]
		errs = append(errs, validateDefinition(def)...)

		// E207: duplicate match key within a kind
		k := keyKind{def.MatchKind, def.MatchKey}
		if first, dup := seen[k]; dup {
			errs = append(errs, ValidationError{
				Field:   def.ID + ".match_key",
				Message: fmt.Sprintf("match key %q already used by %s", def.MatchKey, first),
				Code:    ErrDuplicateKey,
			})
			continue
		}
		seen[k] = def.ID
	}

	names := make(map[string]bool)
	for i := range c.Categories {
		cat := &c.Categories[i]
		errs = append(errs, validateCategory(cat)...)

		// E222: category declared twice
		if names[cat.Name] {
			errs = append(errs, ValidationError{
				Field:   "category/" + cat.Name,
				Message: fmt.Sprintf("duplicate category %q", cat.Name),
				Code:    ErrDuplicateCategory,
			})
		}
		names[cat.Name] = true
	}

	return errs
}
