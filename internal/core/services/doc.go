// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Outline service is the single logical writer of the system: every
// log append, batch delete and projection mutation passes through its
// mutex, so readers never observe a half-applied event.
package services
