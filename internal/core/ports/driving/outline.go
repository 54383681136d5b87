package driving

import (
	"context"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
)

// OutlineService is the single entry point for reading and mutating the
// hierarchical list. All mutation is serialized through one logical
// writer; readers always see a fully-applied state.
type OutlineService interface {
	// Load replays the durable log into the projection. Called once at
	// process start before any other method.
	Load(ctx context.Context) error

	// ApplyOperations translates a batch of caller-supplied operations
	// into events sharing one fresh batch id, persists them, applies
	// them to the projection and registers the batch for undo. Invalid
	// operations are skipped, never abort the batch; the summary reports
	// how many events were actually emitted.
	ApplyOperations(ctx context.Context, ops []domain.Operation) (domain.BatchSummary, error)

	// ApplyRemote appends events delivered by the sync layer through the
	// same single-writer path, then fully rebuilds the projection:
	// remote events may carry timestamps earlier than already-applied
	// local ones, so a blind incremental apply is not sound.
	ApplyRemote(ctx context.Context, events []domain.Event) error

	// Undo removes the most recently recorded batch from the log and
	// rebuilds the projection. Returns the undone batch id, or empty
	// string when there is nothing to undo (a no-op, not an error).
	Undo(ctx context.Context) (string, error)

	// CanUndo reports whether an undoable batch is recorded.
	CanUndo() bool

	// Snapshot returns the visible tree as a read-only copy.
	Snapshot() []domain.NodeSnapshot

	// Find returns the visible node with the given stable id, or nil.
	Find(id string) *domain.NodeSnapshot

	// NodeCount returns the count of all nodes including tombstoned
	// ones. Diagnostic use.
	NodeCount() int

	// ChangeLog returns up to limit most recent displayable entries
	// derived from the stored events, newest first. sinceSequence
	// restricts to events strictly after the cutoff; zero means all.
	ChangeLog(ctx context.Context, sinceSequence int64, limit int) ([]domain.ChangeLogEntry, error)

	// Reset wipes the entire log, the projection and the undo history.
	Reset(ctx context.Context) error
}
