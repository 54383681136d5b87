package services

import "sync"

// DefaultUndoCapacity bounds the undo history when no explicit capacity
// is configured.
const DefaultUndoCapacity = 20

// UndoLedger remembers the last N batch ids so "undo" can find the most
// recently created batch. It is an explicitly owned component, not ambient
// state: independent trees (e.g. in tests) never share undo history.
type UndoLedger struct {
	mu       sync.Mutex
	capacity int
	batches  []string
}

// NewUndoLedger creates a bounded ledger. A capacity of zero or less
// falls back to DefaultUndoCapacity.
func NewUndoLedger(capacity int) *UndoLedger {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &UndoLedger{capacity: capacity}
}

// Record pushes a batch id. Beyond capacity the oldest entry is dropped.
func (l *UndoLedger) Record(batchID string) {
	if batchID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.batches = append(l.batches, batchID)
	if len(l.batches) > l.capacity {
		l.batches = l.batches[len(l.batches)-l.capacity:]
	}
}

// Undo pops the most recent batch id. The second return is false when the
// ledger is empty: undoing with no history is a no-op, not an error.
func (l *UndoLedger) Undo() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.batches) == 0 {
		return "", false
	}
	last := l.batches[len(l.batches)-1]
	l.batches = l.batches[:len(l.batches)-1]
	return last, true
}

// CanUndo reports whether the ledger holds at least one batch id.
func (l *UndoLedger) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.batches) > 0
}

// Count returns the number of recorded batch ids.
func (l *UndoLedger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.batches)
}

// Clear drops all recorded batch ids.
func (l *UndoLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = nil
}
