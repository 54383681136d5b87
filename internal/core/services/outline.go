package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driven"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driving"
	"github.com/arbor-labs/arbor-cli/internal/logger"
)

// Ensure Outline implements the interface.
var _ driving.OutlineService = (*Outline)(nil)

// defaultChangeLogLimit caps the change-log view when the caller does not
// ask for a specific length.
const defaultChangeLogLimit = 50

// Outline owns the event log gateway, the projected node tree and the
// undo ledger. It is the single logical writer: every mutation of the log
// and the tree is serialized behind its mutex, and read methods return
// copies, so a reader never observes a half-applied batch.
type Outline struct {
	mu            sync.RWMutex
	store         driven.EventStore
	tree          *domain.NodeTree
	undo          *UndoLedger
	seq           *Sequencer
	strictParents bool
}

// Option configures an Outline.
type Option func(*Outline)

// WithUndoCapacity bounds the undo history. Zero or negative keeps the
// default.
func WithUndoCapacity(capacity int) Option {
	return func(s *Outline) { s.undo = NewUndoLedger(capacity) }
}

// WithStrictParents rejects operations whose parent reference is neither
// batch-local nor a known node id, instead of best-effort attaching under
// the literal token.
func WithStrictParents(strict bool) Option {
	return func(s *Outline) { s.strictParents = strict }
}

// NewOutline creates the outline service on top of an event store.
func NewOutline(store driven.EventStore, opts ...Option) *Outline {
	s := &Outline{
		store: store,
		tree:  domain.NewNodeTree(),
		undo:  NewUndoLedger(0),
		seq:   NewSequencer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replays the durable log into the projection.
func (s *Outline) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx)
}

// ApplyOperations translates, persists and applies one batch.
func (s *Outline) ApplyOperations(ctx context.Context, ops []domain.Operation) (domain.BatchSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batchID := newBatchID()
	events, skipped := s.translate(ops, batchID)
	summary := domain.BatchSummary{BatchID: batchID, EventCount: len(events), Skipped: skipped}

	if len(events) == 0 {
		logger.Info("batch %s: no events emitted (%d operations skipped)", batchID, skipped)
		return summary, nil
	}

	// Durable write first. On failure the projection is untouched, so
	// memory still matches disk.
	if err := s.store.Append(ctx, events, batchID); err != nil {
		return domain.BatchSummary{}, fmt.Errorf("appending batch: %w", err)
	}

	s.applyLocked(events)
	s.undo.Record(batchID)
	logger.Debug("batch %s: %d events applied, %d operations skipped", batchID, len(events), skipped)
	return summary, nil
}

// ApplyRemote appends sync-delivered events through the same single-writer
// path. Remote events keep their own batch ids and may predate already
// applied local events, so the projection is fully rebuilt afterwards
// instead of incrementally updated.
func (s *Outline) ApplyRemote(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Append(ctx, events, ""); err != nil {
		return fmt.Errorf("appending remote events: %w", err)
	}
	return s.rebuildLocked(ctx)
}

// Undo removes the most recent batch and rebuilds. The deleted batch may
// not be the tail of the log once remote events have interleaved, which
// is why this is a full rebuild and never an incremental revert.
func (s *Outline) Undo(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batchID, ok := s.undo.Undo()
	if !ok {
		return "", nil
	}

	if err := s.store.DeleteBatch(ctx, batchID); err != nil {
		// The batch is still in the log; put it back so undo can be
		// retried.
		s.undo.Record(batchID)
		return "", fmt.Errorf("deleting batch %s: %w", batchID, err)
	}

	if err := s.rebuildLocked(ctx); err != nil {
		return "", err
	}
	return batchID, nil
}

// CanUndo reports whether an undoable batch is recorded.
func (s *Outline) CanUndo() bool {
	return s.undo.CanUndo()
}

// UndoDepth returns the number of batches currently undoable.
func (s *Outline) UndoDepth() int {
	return s.undo.Count()
}

// Snapshot returns the visible tree as a read-only copy.
func (s *Outline) Snapshot() []domain.NodeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Snapshot()
}

// Find returns the visible node with the given stable id, or nil.
func (s *Outline) Find(id string) *domain.NodeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.SnapshotNode(id)
}

// NodeCount returns the count of all nodes including tombstoned ones.
func (s *Outline) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.AllNodeCount()
}

// ChangeLog derives display entries from the stored events, newest first.
func (s *Outline) ChangeLog(ctx context.Context, sinceSequence int64, limit int) ([]domain.ChangeLogEntry, error) {
	if limit <= 0 {
		limit = defaultChangeLogLimit
	}

	var (
		events []domain.Event
		err    error
	)
	if sinceSequence > 0 {
		events, err = s.store.FetchSince(ctx, sinceSequence)
	} else {
		events, err = s.store.FetchAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	titleOf := func(id string) string {
		// Tombstoned nodes resolve too: the log shows a deleted node's
		// last known title.
		if n := s.tree.Lookup(id); n != nil {
			return n.Title
		}
		return ""
	}

	var entries []domain.ChangeLogEntry
	for i := len(events) - 1; i >= 0 && len(entries) < limit; i-- {
		entry, err := domain.ChangeLogEntryFromEvent(events[i], titleOf)
		if err != nil {
			logger.Warn("change log: skipping event seq=%d: %v", events[i].Sequence, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reset wipes the log, the projection and the undo history.
func (s *Outline) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wiping event log: %w", err)
	}
	s.tree.RebuildFromEvents(nil)
	s.undo.Clear()
	return nil
}

// applyLocked feeds freshly appended events into the projection. A single
// event that fails to apply is skipped and logged; the rest still apply,
// mirroring the tolerance the projection has for malformed log entries.
func (s *Outline) applyLocked(events []domain.Event) {
	for _, e := range events {
		if err := s.tree.ApplyEvent(e); err != nil {
			logger.Warn("skipping event seq=%d kind=%s: %v", e.Sequence, e.Kind, err)
		}
	}
}

// rebuildLocked replays the full log into a fresh projection.
func (s *Outline) rebuildLocked(ctx context.Context) error {
	events, err := s.store.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}
	if skipped := s.tree.RebuildFromEvents(events); skipped > 0 {
		logger.Warn("rebuild skipped %d malformed events", skipped)
	}
	logger.Debug("projection rebuilt from %d events", len(events))
	return nil
}
