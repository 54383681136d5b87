package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driven"
)

// Ensure EventStore implements the interface.
var _ driven.EventStore = (*EventStore)(nil)

// EventStore is an in-memory implementation of driven.EventStore.
// Events are kept in insertion order; fetches sort by sequence with a
// stable sort so ties resolve to insertion order, matching the SQLite
// store's ORDER BY sequence, rowid.
type EventStore struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Append stores the events in one step. A non-empty batchID stamps every
// event; an empty batchID preserves the ids the events already carry
// (remote-delivered batches).
func (s *EventStore) Append(_ context.Context, events []domain.Event, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if batchID != "" {
			e.BatchID = batchID
		}
		s.events = append(s.events, e)
	}
	return nil
}

// FetchAll returns all events sorted by sequence ascending.
func (s *EventStore) FetchAll(_ context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopy(s.events, func(domain.Event) bool { return true }), nil
}

// FetchSince returns events strictly after the cutoff, sorted ascending.
func (s *EventStore) FetchSince(_ context.Context, sequence int64) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopy(s.events, func(e domain.Event) bool { return e.Sequence > sequence }), nil
}

// FetchByBatch returns all events sharing a batch id.
func (s *EventStore) FetchByBatch(_ context.Context, batchID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Event
	for _, e := range s.events {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteBatch removes every event with the given batch id.
func (s *EventStore) DeleteBatch(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, e := range s.events {
		if e.BatchID != batchID {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

// DeleteAll wipes the store.
func (s *EventStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

func sortedCopy(events []domain.Event, keep func(domain.Event) bool) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
