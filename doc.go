// Package reps provides a composable workout session engine for Go.
// It offers routine templates, a workout session state machine, a
// suspension-safe timer scheduler for rest periods, and pluggable
// record stores.
//
// Reps is designed as a library, not a service. Import it, configure a
// store, and drive sessions through ordinary Go calls.
//
// # Quick Start
//
//	a, err := app.New(
//	    app.WithStore(memory.New()),
//	)
//
// The root package holds the shared leaf types: the error taxonomy,
// Entity timestamps, Config, and the ticking Strategy names. The app
// package assembles the pieces.
//
// # Architecture
//
// Reps follows an explicit dependency-injection pattern: one App wires
// one store, one event bus, one workout engine, and one timer scheduler.
// There are no package-level singletons. The engine and the scheduler
// communicate only through the shared event bus; higher-level wiring
// (start a rest timer when a set completes) lives in the caller.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package reps
