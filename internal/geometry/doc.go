// Package geometry resolves the spatial inputs of a sequence: per-target
// distance, effect size and elevation, and the synthetic origin of
// traveling effects.
//
// Nothing here fails. Missing scene, grid or token data degrades to
// ir.DistanceUnknown and the caller skips range-dependent layers.
package geometry
