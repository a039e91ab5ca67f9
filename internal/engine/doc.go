// Package engine implements the fxdispatch dispatch pipeline and its event
// loop.
//
// ARCHITECTURE:
//
// Dispatch runs one action record through the pipeline:
//
//	config checks → guard (kill switch, exclusions) → matcher →
//	template deferral → geometry → sequence compiler → renderer → log
//
// Normalization, matching and geometry are synchronous. The only suspension
// points are scheduled continuations: the global delay before a batch is
// emitted, item sounds, and the wait for an area template. Continuations
// never block; a Scheduler fires them and they re-enter the loop as events.
//
// Single-Writer Event Loop:
// Host notifications (actions, template creation, effect removal, scene
// unload, message retraction) are enqueued and processed in FIFO order by
// Run. Retracting a message drops every continuation of that message that
// has not fired yet; placements already handed to the renderer are left to
// finish.
//
// The playback guard is the only shared mutable state and is mutated only
// from the pipeline.
package engine
