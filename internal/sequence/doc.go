// Package sequence compiles a matched animation definition and its resolved
// geometry into the ordered placement list handed to the renderer.
//
// Compile is a pure function. Placements are emitted in phase order
// (overlay, source, secondary, target) and, within a phase, in target
// order. A target the origin already occupies is skipped on its own; the
// rest of the batch still compiles.
package sequence
