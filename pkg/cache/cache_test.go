package cache

import (
	"errors"
	"testing"
)

func smallHierarchy() *Hierarchy {
	l1 := Config{Size: 256, LineSize: 16, Associativity: 2, WritePolicy: WriteThrough, ReplacementPolicy: LRU}
	l2 := Config{Size: 1024, LineSize: 16, Associativity: 4, WritePolicy: WriteBack, ReplacementPolicy: LRU}
	return NewHierarchy(l1, l1, l2, 4096)
}

func TestWriteThenReadBack(t *testing.T) {
	h := smallHierarchy()
	if _, err := h.AccessData(0x40, 8, true, 0x1122334455667788); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := h.AccessData(0x40, 8, false, 0)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != 0x1122334455667788 {
		t.Fatalf("got %#x", got)
	}
}

func TestHitsPlusMissesEqualsAccesses(t *testing.T) {
	h := smallHierarchy()
	for i := 0; i < 20; i++ {
		h.AccessData(uint64(i*8), 8, false, 0)
	}
	if h.L1D.Stats.Accesses() != h.L1D.Stats.Hits+h.L1D.Stats.Misses {
		t.Fatalf("accesses invariant broken")
	}
	if h.L1D.Stats.Accesses() == 0 {
		t.Fatalf("expected nonzero accesses")
	}
}

func TestBusErrorOutOfRange(t *testing.T) {
	h := smallHierarchy()
	_, err := h.AccessData(1<<20, 8, false, 0)
	if !errors.Is(err, ErrBusError) {
		t.Fatalf("expected ErrBusError, got %v", err)
	}
}

func TestUnalignedAccessSpanningLineIsDecomposedNotTrapped(t *testing.T) {
	h := smallHierarchy()
	// Line size is 16; write 8 bytes starting 12 bytes into the line so it
	// spans into the next line.
	if _, err := h.AccessData(12, 8, true, 0xAABBCCDDEEFF0011); err != nil {
		t.Fatalf("spanning write should succeed, got %v", err)
	}
	got, err := h.AccessData(12, 8, false, 0)
	if err != nil {
		t.Fatalf("spanning read should succeed, got %v", err)
	}
	if got != 0xAABBCCDDEEFF0011 {
		t.Fatalf("got %#x", got)
	}
}

func TestL2EvictionInvalidatesL1D(t *testing.T) {
	l1 := Config{Size: 16 * 64, LineSize: 16, Associativity: 64, WritePolicy: WriteThrough, ReplacementPolicy: LRU}
	l2 := Config{Size: 16 * 2, LineSize: 16, Associativity: 2, WritePolicy: WriteBack, ReplacementPolicy: FIFO}
	h := NewHierarchy(l1, l1, l2, 1<<20)

	h.AccessData(0, 4, true, 1)
	h.AccessData(16, 4, true, 2)
	if _, ok := h.L1D.Probe(0); !ok {
		t.Fatalf("expected line 0 present in L1D before L2 eviction")
	}

	// A third distinct line forces L2 (2-way) to evict one of the first two.
	h.AccessData(32, 4, true, 3)

	_, l1Hit := h.L1D.Probe(0)
	_, l2Hit := h.L2.Probe(0)
	if l1Hit && !l2Hit {
		t.Fatalf("inclusion violated: line 0 present in L1D but not L2")
	}
}

func TestDirtyNeverExceedsTotalLines(t *testing.T) {
	h := smallHierarchy()
	for i := 0; i < 8; i++ {
		h.AccessData(uint64(i*16), 4, true, uint64(i))
	}
	dirty := 0
	total := 0
	for _, set := range h.L1D.sets {
		for _, line := range set.Lines {
			total++
			if line.Valid && line.Dirty {
				dirty++
			}
		}
	}
	if dirty > total {
		t.Fatalf("dirty count %d exceeds total lines %d", dirty, total)
	}
}

func TestWideAccessRoundTrips(t *testing.T) {
	h := smallHierarchy()
	in := make([]byte, 32)
	for i := range in {
		in[i] = byte(i + 1)
	}
	// Start mid-line so the 32-byte access spans three 16-byte lines.
	if err := h.AccessDataBytes(8, in, true); err != nil {
		t.Fatalf("wide write: %v", err)
	}
	out := make([]byte, 32)
	if err := h.AccessDataBytes(8, out, false); err != nil {
		t.Fatalf("wide read: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("byte %d: got %d, want %d", i, out[i], in[i])
		}
	}
}
