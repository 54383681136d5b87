// Package domain defines the core business entities for Arbor.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Event: An immutable structural change record in the append-only log
//   - NodeTree: The in-memory hierarchy projected from the event log
//   - Node: A single list item within the projection
//   - Operation: A caller-supplied intent, translated into Events
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
