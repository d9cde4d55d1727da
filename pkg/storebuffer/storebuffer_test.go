package storebuffer

import (
	"errors"
	"testing"
)

func TestOverflowStalls(t *testing.T) {
	b := New(2)
	if err := b.Push(0, 4, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Push(4, 4, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Push(8, 4, 3); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestYoungestFirstForwarding(t *testing.T) {
	b := New(4)
	b.Push(0x100, 4, 0xAAAAAAAA)
	b.Push(0x100, 4, 0xBBBBBBBB)

	v, ok, err := b.Forward(0x100, 4)
	if err != nil || !ok || v != 0xBBBBBBBB {
		t.Fatalf("expected youngest store value 0xBBBBBBBB, got %#x ok=%v err=%v", v, ok, err)
	}
}

func TestPartialOverlapStalls(t *testing.T) {
	b := New(4)
	b.Push(0x100, 4, 0xAABBCCDD)

	_, ok, err := b.Forward(0x102, 4)
	if ok {
		t.Fatalf("partial overlap must not silently forward")
	}
	if !errors.Is(err, ErrPartialOverlap) {
		t.Fatalf("expected ErrPartialOverlap, got %v", err)
	}
}

func TestNoOverlapFallsThroughToCache(t *testing.T) {
	b := New(4)
	b.Push(0x100, 4, 1)

	_, ok, err := b.Forward(0x200, 4)
	if ok || err != nil {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestDrainOneIsFIFO(t *testing.T) {
	b := New(4)
	b.Push(0x10, 4, 1)
	b.Push(0x20, 4, 2)

	first, ok := b.DrainOne()
	if !ok || first.Addr != 0x10 {
		t.Fatalf("expected oldest entry first, got %+v", first)
	}
	second, ok := b.DrainOne()
	if !ok || second.Addr != 0x20 {
		t.Fatalf("expected second entry next, got %+v", second)
	}
	if _, ok := b.DrainOne(); ok {
		t.Fatalf("expected empty buffer")
	}
}

func TestFullNoDataLoss(t *testing.T) {
	b := New(2)
	b.Push(0x10, 4, 111)
	b.Push(0x20, 4, 222)
	if !b.Full() {
		t.Fatalf("expected buffer to report full")
	}
	if err := b.Push(0x30, 4, 333); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow rather than silently dropping a store")
	}
	e, _ := b.DrainOne()
	if e.Value != 111 {
		t.Fatalf("expected first pushed value preserved, got %d", e.Value)
	}
}
