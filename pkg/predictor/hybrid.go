// Package predictor implements branch direction and target prediction:
// a hybrid bimodal/perceptron direction predictor arbitrated by
// perceptron confidence, plus a BTB for target prediction. Direction and
// target prediction are independent axes — a taken/not-taken call can be
// right while the target guess is wrong, and vice versa.
package predictor

// Hybrid combines Bimodal and Perceptron direction predictors, using the
// perceptron's prediction whenever it is confident (|sum| > ThresholdT)
// and falling back to the bimodal counter otherwise. The confidence
// threshold doubles as the perceptron's training threshold.
type Hybrid struct {
	Bimodal    *Bimodal
	Perceptron *PerceptronTable
	BTB        *BTB

	Predictions uint64
	Correct     uint64
}

// NewHybrid builds a Hybrid predictor with a bimodal table of
// 2^bimodalIndexBits entries and a BTB of btbSize entries.
func NewHybrid(bimodalIndexBits uint, btbSize int) *Hybrid {
	return &Hybrid{
		Bimodal:    NewBimodal(bimodalIndexBits),
		Perceptron: NewPerceptronTable(),
		BTB:        NewBTB(btbSize),
	}
}

// Outcome carries everything Update needs to train both component
// predictors and the BTB for a single resolved branch.
type Outcome struct {
	sum       int32
	history   []int8
	pc        uint64
	predicted bool
}

// PredictDirection returns whether pc's branch is predicted taken,
// arbitrating between the perceptron (when confident) and the bimodal
// counter (otherwise). The returned Outcome must be passed to Update once
// the branch resolves.
func (h *Hybrid) PredictDirection(pc uint64) (taken bool, outcome Outcome) {
	sum, history := h.Perceptron.Predict(pc)
	confident := sum > ThresholdT || sum < -ThresholdT

	if confident {
		taken = sum > 0
	} else {
		taken = h.Bimodal.Predict(pc)
	}
	return taken, Outcome{sum: sum, history: history, pc: pc, predicted: taken}
}

// PredictTarget returns the BTB's target guess for pc, if any.
func (h *Hybrid) PredictTarget(pc uint64) (uint32, bool) {
	return h.BTB.Lookup(pc)
}

// Update trains both component direction predictors against the actual
// outcome and records the resolved target in the BTB.
func (h *Hybrid) Update(outcome Outcome, taken bool, resolvedTarget uint32) {
	h.Predictions++
	if outcome.predicted == taken {
		h.Correct++
	}

	h.Bimodal.Update(outcome.pc, taken)
	h.Perceptron.Update(outcome.pc, outcome.history, outcome.sum, taken)
	h.BTB.Update(outcome.pc, resolvedTarget)
}

// Accuracy returns the fraction of direction predictions that matched
// their resolved outcome, or 0 with no predictions yet.
func (h *Hybrid) Accuracy() float64 {
	if h.Predictions == 0 {
		return 0
	}
	return float64(h.Correct) / float64(h.Predictions)
}
