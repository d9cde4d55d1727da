package predictor

import "math/bits"

// btbEntry is one branch-target-buffer slot: tag plus predicted target,
// with an LRU recency stamp for eviction.
type btbEntry struct {
	valid    bool
	tag      uint16
	target   uint32
	lastUsed uint64
}

// BTB predicts a branch's target address, independent of its direction:
// a single direct-mapped table of tagged entries, indexed by a folded
// hash of the PC.
type BTB struct {
	entries []btbEntry
	clock   uint64
}

// NewBTB allocates a BTB with the given number of entries (rounded down
// to a power of two).
func NewBTB(size int) *BTB {
	n := 1
	for n*2 <= size {
		n *= 2
	}
	if n == 0 {
		n = 1
	}
	return &BTB{entries: make([]btbEntry, n)}
}

func (b *BTB) hashIndex(pc uint64) int {
	h := pc ^ (pc >> 13) ^ (pc >> 27)
	return int(h) & (len(b.entries) - 1)
}

func hashTag(pc uint64) uint16 {
	return uint16(bits.RotateLeft64(pc, 17) >> 48)
}

// Lookup returns the predicted target for pc, if this BTB holds an entry
// for it.
func (b *BTB) Lookup(pc uint64) (uint32, bool) {
	idx := b.hashIndex(pc)
	e := &b.entries[idx]
	if !e.valid || e.tag != hashTag(pc) {
		return 0, false
	}
	b.clock++
	e.lastUsed = b.clock
	return e.target, true
}

// Update records pc -> target, evicting whatever entry currently
// occupies pc's slot (direct-mapped: there is only one candidate slot per
// PC, so "eviction" and "overwrite" coincide here; LRU bookkeeping is
// kept for parity with a set-associative BTB a future revision might
// upgrade to).
func (b *BTB) Update(pc uint64, target uint32) {
	idx := b.hashIndex(pc)
	b.clock++
	b.entries[idx] = btbEntry{valid: true, tag: hashTag(pc), target: target, lastUsed: b.clock}
}
