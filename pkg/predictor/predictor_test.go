package predictor

import "testing"

func TestBimodalSaturatesAndPredicts(t *testing.T) {
	b := NewBimodal(4)
	pc := uint64(0x1000)

	// Starts weakly-taken.
	if !b.Predict(pc) {
		t.Fatalf("expected initial weakly-taken prediction")
	}
	for i := 0; i < 8; i++ {
		b.Update(pc, false)
	}
	if b.Predict(pc) {
		t.Fatalf("expected prediction to flip to not-taken after repeated not-taken updates")
	}
}

func TestPerceptronTrainsTowardOutcome(t *testing.T) {
	p := newPerceptron()
	history := make([]int8, totalHistoryLength)
	for i := 0; i < totalHistoryLength; i++ {
		history[i] = 1
	}

	for i := 0; i < 50; i++ {
		sum := p.PredictSum(history)
		p.Train(history, 1, sum)
	}
	if got := p.PredictSum(history); got <= 0 {
		t.Fatalf("expected perceptron to learn a positive (taken) sum, got %d", got)
	}
}

func TestPerceptronWeightsClip(t *testing.T) {
	p := newPerceptron()
	history := make([]int8, totalHistoryLength)
	for i := range history {
		history[i] = 1
	}
	for i := 0; i < 1000; i++ {
		p.Train(history, 1, 0)
	}
	if p.weight[0] > weightClip || p.weight[0] < -weightClip-1 {
		t.Fatalf("bias weight escaped signed 8-bit clip: %d", p.weight[0])
	}
}

func TestBTBLookupMiss(t *testing.T) {
	b := NewBTB(16)
	if _, ok := b.Lookup(0x4000); ok {
		t.Fatalf("expected miss on empty BTB")
	}
	b.Update(0x4000, 0x8000)
	got, ok := b.Lookup(0x4000)
	if !ok || got != 0x8000 {
		t.Fatalf("expected hit with target 0x8000, got %#x ok=%v", got, ok)
	}
}

func TestHybridReflectsOutcomeInAccuracy(t *testing.T) {
	h := NewHybrid(10, 64)
	pc := uint64(0x2000)

	for i := 0; i < 30; i++ {
		_, outcome := h.PredictDirection(pc)
		h.Update(outcome, true, 0x3000)
	}
	if got := h.Accuracy(); got < 0.5 {
		t.Fatalf("expected accuracy to climb toward consistently-taken branch, got %v", got)
	}
}

func TestHybridTargetPrediction(t *testing.T) {
	h := NewHybrid(10, 64)
	pc := uint64(0x2000)
	if _, ok := h.PredictTarget(pc); ok {
		t.Fatalf("expected BTB miss before any Update")
	}
	_, outcome := h.PredictDirection(pc)
	h.Update(outcome, true, 0x9000)

	got, ok := h.PredictTarget(pc)
	if !ok || got != 0x9000 {
		t.Fatalf("expected BTB hit with target 0x9000, got %#x ok=%v", got, ok)
	}
}
