// Package normalize turns rule-system events into canonical action records.
//
// Every supported rule system gets a small Adapter that maps its native event
// shape onto ir.ActionRecord. The Normalizer picks the adapter by system id,
// applies the checks shared by every system (local user, required fields) and
// derives NormalizedName. Nothing downstream of this package branches on the
// rule-system id.
//
// Normalization is a pure transform: an event either yields a complete record
// or ErrNotApplicable. Adapters never panic on malformed payloads.
package normalize
