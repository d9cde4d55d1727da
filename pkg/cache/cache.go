// Package cache implements the L1-I/L1-D/L2/RAM memory hierarchy:
// set-associative caches with configurable write and replacement
// policies, backed by a flat RAM. The levels form a linear chain probed
// top-down, each filling from the one below it on a miss.
package cache

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrBusError reports an access outside the backing RAM's bounds.
var ErrBusError = errors.New("cache: bus error")

// Line is one cache line: a tag, its data, and bookkeeping for
// replacement and write-back.
type Line struct {
	Valid     bool
	Dirty     bool
	Tag       uint64
	Data      []byte
	insertSeq uint64 // FIFO order
	lastUsed  uint64 // LRU recency
}

// Set is one fully-associative group of lines within a cache.
type Set struct {
	Lines []Line
}

// Stats accumulates per-cache access counters for telemetry.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Writebacks uint64
}

// Accesses returns Hits+Misses, a cross-check invariant: every access is
// either a hit or a miss, never both or neither.
func (s Stats) Accesses() uint64 { return s.Hits + s.Misses }

// Cache is one level of the hierarchy: a set-associative array of lines
// plus the policy that governs it.
type Cache struct {
	Config Config
	sets   []Set
	clock  uint64
	Stats  Stats
}

// New allocates a Cache per cfg, all lines initially invalid.
func New(cfg Config) *Cache {
	numSets := cfg.NumSets()
	if numSets <= 0 {
		numSets = 1
	}
	sets := make([]Set, numSets)
	for i := range sets {
		lines := make([]Line, cfg.Associativity)
		for j := range lines {
			lines[j].Data = make([]byte, cfg.LineSize)
		}
		sets[i].Lines = lines
	}
	return &Cache{Config: cfg, sets: sets}
}

func (c *Cache) index(addr uint64) (setIdx int, tag uint64, lineOffset int) {
	lineSize := uint64(c.Config.LineSize)
	lineNum := addr / lineSize
	lineOffset = int(addr % lineSize)
	numSets := uint64(len(c.sets))
	setIdx = int(lineNum % numSets)
	tag = lineNum / numSets
	return setIdx, tag, lineOffset
}

// lookup returns the line matching addr in its set, or nil on a miss.
func (c *Cache) lookup(addr uint64) (*Line, int) {
	setIdx, tag, _ := c.index(addr)
	set := &c.sets[setIdx]
	for i := range set.Lines {
		if set.Lines[i].Valid && set.Lines[i].Tag == tag {
			return &set.Lines[i], setIdx
		}
	}
	return nil, setIdx
}

// Probe reports a hit (returning the owning line) or a miss without
// allocating, used by inclusion invalidation to check an L1 for a
// specific address without disturbing replacement state on a miss.
func (c *Cache) Probe(addr uint64) (*Line, bool) {
	line, _ := c.lookup(addr)
	return line, line != nil
}

// Invalidate drops addr's line from this cache if present, used to
// enforce L2-over-L1D inclusion: an L2 eviction invalidates the matching
// L1-D line.
func (c *Cache) Invalidate(addr uint64) {
	if line, _ := c.lookup(addr); line != nil {
		*line = Line{Data: make([]byte, c.Config.LineSize)}
	}
}

// victim selects the line to evict from set according to the
// configured replacement policy.
func (c *Cache) victim(set *Set) int {
	for i := range set.Lines {
		if !set.Lines[i].Valid {
			return i
		}
	}
	switch c.Config.ReplacementPolicy {
	case FIFO:
		oldest := 0
		for i := range set.Lines {
			if set.Lines[i].insertSeq < set.Lines[oldest].insertSeq {
				oldest = i
			}
		}
		return oldest
	case Random:
		// Deterministic pseudo-random selection derived from the clock
		// counter, avoiding a dependency on math/rand's global state so
		// repeated runs of the same program are reproducible.
		return int(bits.RotateLeft64(c.clock, 7)) % len(set.Lines)
	default: // LRU
		lru := 0
		for i := range set.Lines {
			if set.Lines[i].lastUsed < set.Lines[lru].lastUsed {
				lru = i
			}
		}
		return lru
	}
}

// fill loads addr's line from below (via the readLine callback) into
// set, evicting a victim if necessary. Whenever the victim is a valid
// line (dirty or clean) and onEvict is non-nil, onEvict is invoked with
// the evicted line's address and the line itself, so the caller can write
// a dirty line to the next level and enforce inclusion.
func (c *Cache) fill(addr uint64, readLine func(lineAddr uint64) ([]byte, error), onEvict func(addr uint64, line *Line)) (*Line, error) {
	setIdx, tag, _ := c.index(addr)
	set := &c.sets[setIdx]
	victimIdx := c.victim(set)
	victim := &set.Lines[victimIdx]

	if victim.Valid && onEvict != nil {
		evictedAddr := (victim.Tag*uint64(len(c.sets)) + uint64(setIdx)) * uint64(c.Config.LineSize)
		if victim.Dirty {
			c.Stats.Writebacks++
		}
		c.Stats.Evictions++
		onEvict(evictedAddr, victim)
	}

	lineAddr := addr - addr%uint64(c.Config.LineSize)
	data, err := readLine(lineAddr)
	if err != nil {
		return nil, err
	}

	c.clock++
	*victim = Line{
		Valid:     true,
		Tag:       tag,
		Data:      data,
		insertSeq: c.clock,
		lastUsed:  c.clock,
	}
	return victim, nil
}

func (c *Cache) touch(line *Line) {
	c.clock++
	line.lastUsed = c.clock
}

// Hierarchy wires L1-I, L1-D, L2 and a flat RAM together: L1-I
// and L1-D are separate caches (Harvard split at L1), both back onto a
// shared L2, which backs onto RAM. L2 holds inclusion over L1-D: evicting
// a line from L2 invalidates the corresponding L1-D line if present.
type Hierarchy struct {
	L1I *Cache
	L1D *Cache
	L2  *Cache
	RAM []byte
}

// NewHierarchy builds a Hierarchy with the given per-level configs and a
// RAM of ramSize bytes.
func NewHierarchy(l1i, l1d, l2 Config, ramSize int) *Hierarchy {
	return &Hierarchy{
		L1I: New(l1i),
		L1D: New(l1d),
		L2:  New(l2),
		RAM: make([]byte, ramSize),
	}
}

func (h *Hierarchy) readRAMLine(addr uint64, lineSize int) ([]byte, error) {
	if addr+uint64(lineSize) > uint64(len(h.RAM)) {
		return nil, fmt.Errorf("%w: address %#x (line size %d) exceeds RAM size %d", ErrBusError, addr, lineSize, len(h.RAM))
	}
	out := make([]byte, lineSize)
	copy(out, h.RAM[addr:addr+uint64(lineSize)])
	return out, nil
}

func (h *Hierarchy) writeRAMLine(addr uint64, data []byte) error {
	if addr+uint64(len(data)) > uint64(len(h.RAM)) {
		return fmt.Errorf("%w: address %#x (line size %d) exceeds RAM size %d", ErrBusError, addr, len(data), len(h.RAM))
	}
	copy(h.RAM[addr:addr+uint64(len(data))], data)
	return nil
}

// fetchThroughL2 resolves a line for l1 (either L1I or L1D) via L2,
// filling L2 from RAM on an L2 miss, and enforces inclusion: when L2
// evicts a line, the matching line in h.L1D is invalidated. (L1-I is
// never written by stores so it needs no reciprocal invalidation.)
// fetchThroughL2 always returns a fresh copy of the line's bytes: L1
// lines must never alias L2's backing array, or a write to an L1 line
// would silently mutate L2 without going through dirty tracking.
func (h *Hierarchy) fetchThroughL2(addr uint64) ([]byte, error) {
	if l2line, _ := h.L2.lookup(addr); l2line != nil {
		h.L2.touch(l2line)
		h.L2.Stats.Hits++
		return cloneBytes(l2line.Data), nil
	}
	h.L2.Stats.Misses++
	l2line, err := h.L2.fill(addr, func(lineAddr uint64) ([]byte, error) {
		return h.readRAMLine(lineAddr, h.L2.Config.LineSize)
	}, func(evictedAddr uint64, victim *Line) {
		if victim.Dirty {
			_ = h.writeRAMLine(evictedAddr, victim.Data)
		}
		h.L1D.Invalidate(evictedAddr)
	})
	if err != nil {
		return nil, err
	}
	return cloneBytes(l2line.Data), nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// AccessData performs a data-side access to addr: if write is true, value
// is stored (at word granularity within the line); otherwise the current
// word is read and returned. A miss in L1-D pulls the line up through L2.
// An access whose width spans two lines is legal and is decomposed into
// two line-granular accesses rather than trapping.
func (h *Hierarchy) AccessData(addr uint64, width int, write bool, value uint64) (uint64, error) {
	lineSize := uint64(h.L1D.Config.LineSize)
	firstLineEnd := (addr/lineSize + 1) * lineSize
	if addr+uint64(width) > firstLineEnd {
		return h.accessSpanning(addr, width, write, value)
	}

	line, err := h.resolveL1D(addr)
	if err != nil {
		return 0, err
	}
	off := int(addr % lineSize)
	if write {
		putBytes(line.Data[off:off+width], value)
		if h.L1D.Config.WritePolicy == WriteBack {
			line.Dirty = true
		} else {
			if err := h.writeThroughLine(addr, line.Data[off:off+width]); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
	return getBytes(line.Data[off : off+width]), nil
}

func (h *Hierarchy) accessSpanning(addr uint64, width int, write bool, value uint64) (uint64, error) {
	lineSize := int(h.L1D.Config.LineSize)
	firstPart := lineSize - int(addr%uint64(lineSize))
	if firstPart > width {
		firstPart = width
	}
	secondPart := width - firstPart

	if !write {
		lo, err := h.AccessData(addr, firstPart, false, 0)
		if err != nil {
			return 0, err
		}
		hi, err := h.AccessData(addr+uint64(firstPart), secondPart, false, 0)
		if err != nil {
			return 0, err
		}
		return lo | (hi << (uint(firstPart) * 8)), nil
	}

	loMask := uint64(1)<<(uint(firstPart)*8) - 1
	if _, err := h.AccessData(addr, firstPart, true, value&loMask); err != nil {
		return 0, err
	}
	if _, err := h.AccessData(addr+uint64(firstPart), secondPart, true, value>>(uint(firstPart)*8)); err != nil {
		return 0, err
	}
	return 0, nil
}

func (h *Hierarchy) resolveL1D(addr uint64) (*Line, error) {
	if line, _ := h.L1D.lookup(addr); line != nil {
		h.L1D.touch(line)
		h.L1D.Stats.Hits++
		return line, nil
	}
	h.L1D.Stats.Misses++
	return h.L1D.fill(addr, h.fetchThroughL2, func(evictedAddr uint64, victim *Line) {
		if victim.Dirty {
			_ = h.writeThroughLine(evictedAddr, victim.Data)
		}
	})
}

func (h *Hierarchy) writeThroughLine(addr uint64, data []byte) error {
	if l2line, _ := h.L2.lookup(addr); l2line != nil {
		off := int(addr % uint64(h.L2.Config.LineSize))
		copy(l2line.Data[off:off+len(data)], data)
		if h.L2.Config.WritePolicy == WriteBack {
			l2line.Dirty = true
			return nil
		}
	}
	return h.writeRAMLine(addr, data)
}

// AccessDataBytes moves len(buf) raw bytes between buf and the data
// hierarchy at addr, for access widths beyond a 64-bit word (vector
// loads and stores move 16 or 32 bytes at a time). Line-spanning
// accesses decompose the same way AccessData's do.
func (h *Hierarchy) AccessDataBytes(addr uint64, buf []byte, write bool) error {
	lineSize := uint64(h.L1D.Config.LineSize)
	for len(buf) > 0 {
		chunk := int(lineSize - addr%lineSize)
		if chunk > len(buf) {
			chunk = len(buf)
		}
		line, err := h.resolveL1D(addr)
		if err != nil {
			return err
		}
		off := int(addr % lineSize)
		if write {
			copy(line.Data[off:off+chunk], buf[:chunk])
			if h.L1D.Config.WritePolicy == WriteBack {
				line.Dirty = true
			} else if err := h.writeThroughLine(addr, line.Data[off:off+chunk]); err != nil {
				return err
			}
		} else {
			copy(buf[:chunk], line.Data[off:off+chunk])
		}
		addr += uint64(chunk)
		buf = buf[chunk:]
	}
	return nil
}

// FetchInstruction returns size bytes at addr through L1-I (and L2 on an
// L1-I miss). Instructions are never written by this path.
func (h *Hierarchy) FetchInstruction(addr uint64, size int) ([]byte, error) {
	lineSize := uint64(h.L1I.Config.LineSize)
	firstLineEnd := (addr/lineSize + 1) * lineSize
	if addr+uint64(size) > firstLineEnd {
		lo, err := h.FetchInstruction(addr, int(firstLineEnd-addr))
		if err != nil {
			return nil, err
		}
		hi, err := h.FetchInstruction(firstLineEnd, size-len(lo))
		if err != nil {
			return nil, err
		}
		return append(lo, hi...), nil
	}

	var line *Line
	if l, _ := h.L1I.lookup(addr); l != nil {
		h.L1I.touch(l)
		h.L1I.Stats.Hits++
		line = l
	} else {
		h.L1I.Stats.Misses++
		l, err := h.L1I.fill(addr, h.fetchThroughL2, nil)
		if err != nil {
			return nil, err
		}
		line = l
	}
	off := int(addr % lineSize)
	out := make([]byte, size)
	copy(out, line.Data[off:off+size])
	return out, nil
}

func getBytes(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putBytes(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}
