// Package host defines the surfaces the dispatch core reads from its host:
// scene and token geometry, effect lookups, and user notifications.
//
// The in-memory implementations back the CLI, the conformance harness and
// tests. A live host supplies its own.
package host
