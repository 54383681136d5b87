package services

import (
	"sync"
	"time"
)

// Sequencer hands out monotonically increasing sequence timestamps
// (nanoseconds since the Unix epoch). Two events minted by the same writer
// never share a sequence even when the wall clock stalls or steps back.
type Sequencer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewSequencer creates a sequencer driven by the system clock.
func NewSequencer() *Sequencer {
	return &Sequencer{now: time.Now}
}

// Next returns the next sequence timestamp.
func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.now().UnixNano()
	if seq <= s.last {
		seq = s.last + 1
	}
	s.last = seq
	return seq
}
