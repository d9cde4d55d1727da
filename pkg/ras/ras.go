// Package ras implements the return-address stack: Call pushes the
// return address, Ret pops and uses it as a target prediction.
package ras

// Stack is a bounded return-address predictor. When full, Push evicts the
// oldest entry (FIFO) rather than rejecting the new one — a deep call
// chain degrades prediction accuracy for its outermost frames instead of
// losing the most recent (and most likely to return soon) address.
type Stack struct {
	entries []uint32
	maxSize int

	pushes uint64
	pops   uint64
	hits   uint64
	misses uint64
}

// New allocates a Stack holding at most maxSize return addresses.
func New(maxSize int) *Stack {
	return &Stack{maxSize: maxSize}
}

// Push records returnAddress as the target for the next matching Ret. If
// the stack is already at capacity, the oldest entry is evicted first.
func (s *Stack) Push(returnAddress uint32) {
	if len(s.entries) >= s.maxSize {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, returnAddress)
	s.pushes++
}

// Pop removes and returns the most recently pushed address.
func (s *Stack) Pop() (uint32, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	n := len(s.entries) - 1
	addr := s.entries[n]
	s.entries = s.entries[:n]
	s.pops++
	return addr, true
}

// Predict peeks the most recently pushed address without popping it, for
// use as a Ret target prediction before the matching Call frame is known
// to have actually unwound.
func (s *Stack) Predict() (uint32, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[len(s.entries)-1], true
}

// UpdatePrediction records whether a prior Predict's value (predicted,
// possibly none) matched the actual resolved return address, for the
// hit/miss accuracy counters.
func (s *Stack) UpdatePrediction(predicted *uint32, actual uint32) {
	if predicted != nil && *predicted == actual {
		s.hits++
	} else {
		s.misses++
	}
}

// Stats is a snapshot of Stack's counters.
type Stats struct {
	Pushes      uint64
	Pops        uint64
	Hits        uint64
	Misses      uint64
	Accuracy    float64
	CurrentDepth int
	MaxDepth    int
}

// Accuracy returns hits/(hits+misses) as a percentage, or 0 if there have
// been no predictions yet.
func (s *Stack) Accuracy() float64 {
	total := s.hits + s.misses
	if total == 0 {
		return 0
	}
	return float64(s.hits) / float64(total) * 100.0
}

// Stats returns a snapshot of all counters plus current/maximum depth.
func (s *Stack) Stats() Stats {
	return Stats{
		Pushes:       s.pushes,
		Pops:         s.pops,
		Hits:         s.hits,
		Misses:       s.misses,
		Accuracy:     s.Accuracy(),
		CurrentDepth: len(s.entries),
		MaxDepth:     s.maxSize,
	}
}

// Reset clears all entries and counters.
func (s *Stack) Reset() {
	s.entries = nil
	s.pushes, s.pops, s.hits, s.misses = 0, 0, 0, 0
}

// Depth returns the number of addresses currently on the stack.
func (s *Stack) Depth() int { return len(s.entries) }
