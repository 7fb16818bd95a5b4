package compositor

import "sync"

// Sequencer hands out monotonically increasing frame sequence numbers,
// starting at 1
type Sequencer struct {
	seq uint64
	sync.Mutex
}

// NewSequencer returns a sequencer
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the next sequence number
func (s *Sequencer) Next() uint64 {
	s.Lock()
	defer s.Unlock()
	s.seq++
	return s.seq
}

// Last returns the most recently issued sequence number, zero if none
func (s *Sequencer) Last() uint64 {
	s.Lock()
	defer s.Unlock()
	return s.seq
}
