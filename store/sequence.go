package store

import "sync"

// Sequence hands out monotonically increasing identifiers for one table.
// Values are never reused, even when the transaction that drew them rolls
// back.
type Sequence struct {
	mu   sync.Mutex
	last int64
}

func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Observe moves the sequence past an explicitly assigned id.
func (s *Sequence) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

func (s *Sequence) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
