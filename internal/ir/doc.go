// Package ir provides the canonical types shared by the dispatch pipeline.
//
// This package contains type definitions and identity helpers only. All other
// internal packages import ir; ir imports nothing internal, so the data model
// stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - ActionRecord is ephemeral: built once per host event, discarded after dispatch
//   - AnimationDefinition is read-only to the engine once compiled
//   - LayerSpec is fully specified; every option carries a concrete value
//   - All JSON tags use snake_case
package ir
