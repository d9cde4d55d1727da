package ras

import "testing"

func TestPushPopOrder(t *testing.T) {
	s := New(4)
	s.Push(0x100)
	s.Push(0x200)

	got, ok := s.Pop()
	if !ok || got != 0x200 {
		t.Fatalf("expected most recent push 0x200 first, got %#x ok=%v", got, ok)
	}
	got, ok = s.Pop()
	if !ok || got != 0x100 {
		t.Fatalf("expected 0x100 next, got %#x ok=%v", got, ok)
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("expected empty stack")
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	s := New(2)
	s.Push(1)
	s.Push(2)
	s.Push(3) // should evict 1

	if got, _ := s.Pop(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got, _ := s.Pop(); got != 2 {
		t.Fatalf("expected 2 (1 should have been evicted), got %d", got)
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("expected stack to be empty after evicted entry is gone")
	}
}

func TestPredictDoesNotPop(t *testing.T) {
	s := New(4)
	s.Push(0x42)

	addr, ok := s.Predict()
	if !ok || addr != 0x42 {
		t.Fatalf("predict failed: %#x %v", addr, ok)
	}
	if s.Depth() != 1 {
		t.Fatalf("predict must not consume the entry, depth = %d", s.Depth())
	}
}

func TestAccuracyTracksHitsAndMisses(t *testing.T) {
	s := New(4)
	predicted := uint32(0x10)
	s.UpdatePrediction(&predicted, 0x10)
	s.UpdatePrediction(&predicted, 0x20)

	if got := s.Accuracy(); got != 50.0 {
		t.Fatalf("expected 50%% accuracy, got %v", got)
	}
}

func TestAccuracyZeroWithNoPredictions(t *testing.T) {
	s := New(4)
	if got := s.Accuracy(); got != 0 {
		t.Fatalf("expected 0 accuracy with no predictions, got %v", got)
	}
}

func TestMissingPredictionCountsAsMiss(t *testing.T) {
	s := New(4)
	s.UpdatePrediction(nil, 0x99)
	if got := s.Stats(); got.Misses != 1 || got.Hits != 0 {
		t.Fatalf("expected 1 miss, got %+v", got)
	}
}
