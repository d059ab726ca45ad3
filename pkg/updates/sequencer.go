package updates

import "sync/atomic"

// Sequencer hands out strictly increasing sequence ids. Safe to call from
// any producer goroutine. The zero value is ready to use; the first id
// issued is 1, so a zeroed SequenceID always reads as "never updated".
type Sequencer struct {
	last atomic.Int64
}

// Next returns the next sequence id. Never fails, never blocks.
func (s *Sequencer) Next() SequenceID {
	return SequenceID(s.last.Add(1))
}
