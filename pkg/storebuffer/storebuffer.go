// Package storebuffer implements the FIFO store buffer sitting between
// the Memory stage and the cache hierarchy: committed stores queue here
// and drain to the cache one at a time, while younger loads can forward
// directly from an in-flight store instead of waiting for it to drain.
package storebuffer

import "fmt"

// Entry is one queued store awaiting drain to the cache hierarchy.
type Entry struct {
	Addr  uint64
	Width int
	Value uint64
	seq   uint64
}

// Buffer is a bounded FIFO queue of Entry, oldest-first.
type Buffer struct {
	entries []Entry
	cap     int
	nextSeq uint64
	peak    int

	forwards uint64
	drains   uint64
}

// New allocates a Buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	return &Buffer{cap: capacity}
}

// ErrOverflow is returned by Push when the buffer is already at capacity;
// the caller (the Memory stage) must stall rather than drop the store.
var ErrOverflow = fmt.Errorf("storebuffer: overflow")

// ErrPartialOverlap is returned by Forward when a load partially, but not
// fully, overlaps an in-flight store: forwarding a partial value would be
// silently wrong, so the caller must stall until the overlapping store
// drains instead.
var ErrPartialOverlap = fmt.Errorf("storebuffer: partial overlap, stall required")

// Len reports the number of entries currently queued.
func (b *Buffer) Len() int { return len(b.entries) }

// Full reports whether Push would return ErrOverflow.
func (b *Buffer) Full() bool { return len(b.entries) >= b.cap }

// Push enqueues a new store. It fails with ErrOverflow if the buffer is
// at capacity.
func (b *Buffer) Push(addr uint64, width int, value uint64) error {
	if b.Full() {
		return ErrOverflow
	}
	b.nextSeq++
	b.entries = append(b.entries, Entry{Addr: addr, Width: width, Value: value, seq: b.nextSeq})
	if len(b.entries) > b.peak {
		b.peak = len(b.entries)
	}
	return nil
}

// Cap returns the buffer's configured capacity.
func (b *Buffer) Cap() int { return b.cap }

// Peak returns the highest occupancy the buffer ever reached, the
// numerator of the utilization telemetry.
func (b *Buffer) Peak() int { return b.peak }

// Forwards returns how many loads were satisfied from a buffered store.
func (b *Buffer) Forwards() uint64 { return b.forwards }

// Drains returns how many entries have been drained to the cache.
func (b *Buffer) Drains() uint64 { return b.drains }

// DrainOne removes and returns the oldest entry, for writing to the
// cache hierarchy. It reports ok=false if the buffer is empty.
func (b *Buffer) DrainOne() (Entry, bool) {
	if len(b.entries) == 0 {
		return Entry{}, false
	}
	e := b.entries[0]
	b.entries = b.entries[1:]
	b.drains++
	return e, true
}

func overlaps(aAddr uint64, aWidth int, bAddr uint64, bWidth int) bool {
	aEnd := aAddr + uint64(aWidth)
	bEnd := bAddr + uint64(bWidth)
	return aAddr < bEnd && bAddr < aEnd
}

func contains(outerAddr uint64, outerWidth int, innerAddr uint64, innerWidth int) bool {
	return innerAddr >= outerAddr && innerAddr+uint64(innerWidth) <= outerAddr+uint64(outerWidth)
}

// Forward searches the buffer youngest-first for a store that can supply
// a load of the given address and width. It returns:
//   - (value, true, nil) if the youngest overlapping store fully contains
//     the load (the common store-to-load forwarding case);
//   - (0, false, nil) if no entry overlaps the load at all (the cache
//     hierarchy must supply the value);
//   - (0, false, ErrPartialOverlap) if an entry overlaps but does not
//     fully contain the load — this is never silently merged; the
//     caller must stall until that store drains.
func (b *Buffer) Forward(addr uint64, width int) (uint64, bool, error) {
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if !overlaps(e.Addr, e.Width, addr, width) {
			continue
		}
		if !contains(e.Addr, e.Width, addr, width) {
			return 0, false, ErrPartialOverlap
		}
		shift := (addr - e.Addr) * 8
		mask := uint64(1)
		if width < 8 {
			mask = uint64(1)<<(uint(width)*8) - 1
		} else {
			mask = ^uint64(0)
		}
		b.forwards++
		return (e.Value >> shift) & mask, true, nil
	}
	return 0, false, nil
}
