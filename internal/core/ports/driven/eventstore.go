package driven

import (
	"context"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
)

// EventStore persists the append-only event log. It is pure storage: it
// never touches the in-memory projection. The outline service is the sole
// gateway that feeds stored events into the node tree, which is what keeps
// "durably written" and "applied" from diverging.
//
// Backed by SQLite for durable storage; an in-memory implementation exists
// for tests.
type EventStore interface {
	// Append persists the given events in one atomic write, stamping
	// every event with batchID first. Either all events are durably
	// written or none are. Failures wrap domain.ErrDurableWrite.
	Append(ctx context.Context, events []domain.Event, batchID string) error

	// FetchAll returns every stored event sorted by sequence timestamp
	// ascending, ties broken by insertion order. This is the only source
	// of truth for projection rebuilds.
	FetchAll(ctx context.Context) ([]domain.Event, error)

	// FetchSince returns events with sequence strictly after the cutoff,
	// sorted ascending. Used by the change-log view, not by the tree.
	FetchSince(ctx context.Context, sequence int64) ([]domain.Event, error)

	// FetchByBatch returns all events sharing a batch id, in any order.
	FetchByBatch(ctx context.Context, batchID string) ([]domain.Event, error)

	// DeleteBatch physically removes every event with the given batch id.
	// It does NOT update the projection: the deleted batch is not
	// guaranteed to be the tail of the log, so callers must follow with
	// FetchAll and a full rebuild.
	DeleteBatch(ctx context.Context, batchID string) error

	// DeleteAll wipes the entire log. Used for a full data reset.
	DeleteAll(ctx context.Context) error
}
