// Package matcher selects the animation definition for an action record.
//
// Selection is an ordered list of rules evaluated top to bottom; the first
// rule that yields a usable definition wins. Matching is pure: the same
// record against the same registry always selects the same definition.
package matcher

import (
	"github.com/roach88/fxdispatch/internal/ir"
)

// Definitions is the registry surface the matcher reads.
// *catalog.Registry implements it.
type Definitions interface {
	ByName(normalizedName string) (*ir.AnimationDefinition, bool)
	ByCategory(name string) (*ir.AnimationDefinition, bool)
	ByPreset(pt ir.PresetType) (*ir.AnimationDefinition, bool)
	Categories() []ir.Category

	// Usable reports whether a found definition may be played.
	Usable(def *ir.AnimationDefinition) bool
}

// Candidate is what a rule proposes: a definition and, for category
// matches, the category that supplied it.
type Candidate struct {
	Definition *ir.AnimationDefinition
	Category   string
}

// Rule is one (predicate, outcome) step of the selection.
type Rule struct {
	Name  string
	Match func(rec *ir.ActionRecord, defs Definitions) (Candidate, bool)
}

// Rule names, in default priority order.
const (
	RulePresetOverride = "preset_override"
	RuleExactName      = "exact_name"
	RuleCategory       = "category"
	RulePresetFallback = "preset_fallback"
)

// DefaultRules returns the standard priority order:
//
//  1. item-level preset override (pre-empts the name path)
//  2. exact normalized name
//  3. category membership, first declared category wins
//  4. item-level preset type without override (follows the name path)
func DefaultRules() []Rule {
	return []Rule{
		{Name: RulePresetOverride, Match: matchPresetOverride},
		{Name: RuleExactName, Match: matchExactName},
		{Name: RuleCategory, Match: matchCategory},
		{Name: RulePresetFallback, Match: matchPresetFallback},
	}
}

// Result is the outcome of a selection.
type Result struct {
	Definition *ir.AnimationDefinition
	Rule       string
	Category   string

	// Skipped lists definition IDs a rule found but could not use
	// (disabled or misconfigured), in evaluation order.
	Skipped []string
}

// Matcher evaluates rules in order.
type Matcher struct {
	rules []Rule
}

// New returns a Matcher over rules. With no rules, DefaultRules are used.
func New(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Matcher{rules: r}
}

// Rules returns the rule names in evaluation order.
func (m *Matcher) Rules() []string {
	names := make([]string, len(m.rules))
	for i, r := range m.rules {
		names[i] = r.Name
	}
	return names
}

// Match returns the selected definition. ok is false for no match, which is
// the expected outcome for most actions.
func (m *Matcher) Match(rec *ir.ActionRecord, defs Definitions) (res Result, ok bool) {
	for _, rule := range m.rules {
		cand, found := rule.Match(rec, defs)
		if !found {
			continue
		}
		if !defs.Usable(cand.Definition) {
			res.Skipped = append(res.Skipped, cand.Definition.ID)
			continue
		}
		res.Definition = cand.Definition
		res.Rule = rule.Name
		res.Category = cand.Category
		return res, true
	}
	return res, false
}

func matchPresetOverride(rec *ir.ActionRecord, defs Definitions) (Candidate, bool) {
	if !rec.PresetOverride || rec.PresetType == "" {
		return Candidate{}, false
	}
	def, ok := defs.ByPreset(rec.PresetType)
	return Candidate{Definition: def}, ok
}

func matchExactName(rec *ir.ActionRecord, defs Definitions) (Candidate, bool) {
	if rec.NormalizedName == "" {
		return Candidate{}, false
	}
	def, ok := defs.ByName(rec.NormalizedName)
	return Candidate{Definition: def}, ok
}

// matchCategory stops at the first category containing the name. A later
// category is never consulted, even when the first one's definition is
// unusable.
func matchCategory(rec *ir.ActionRecord, defs Definitions) (Candidate, bool) {
	if rec.NormalizedName == "" {
		return Candidate{}, false
	}
	for _, cat := range defs.Categories() {
		if !cat.Contains(rec.NormalizedName) {
			continue
		}
		def, ok := defs.ByCategory(cat.Name)
		return Candidate{Definition: def, Category: cat.Name}, ok
	}
	return Candidate{}, false
}

func matchPresetFallback(rec *ir.ActionRecord, defs Definitions) (Candidate, bool) {
	if rec.PresetOverride || rec.PresetType == "" {
		return Candidate{}, false
	}
	def, ok := defs.ByPreset(rec.PresetType)
	return Candidate{Definition: def}, ok
}
