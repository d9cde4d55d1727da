package predictor

// Perceptron is one linear predictor: a per-branch weight vector over a
// combined global+local history, trained on misprediction or low
// confidence.
type Perceptron struct {
	weight []int32 // weight[0] is the bias; weight[i+1] pairs with history[i]
}

const (
	globalHistoryLength = 16
	localHistoryLength  = 8
	totalHistoryLength  = globalHistoryLength + localHistoryLength
	numPerceptrons       = 1024

	// weightClip bounds every weight to a signed 8-bit range.
	weightClip = 1<<7 - 1

	// ThresholdT is the confidence threshold: a prediction whose |sum|
	// does not exceed this is retrained even when it happened to be
	// correct. A fixed 20 rather than the 1.93*H+14 rule of thumb.
	ThresholdT = 20
)

func newPerceptron() *Perceptron {
	return &Perceptron{weight: make([]int32, totalHistoryLength+1)}
}

// PredictSum computes the dot product of this perceptron's weights
// against history (an entry of +1 counts as +1; any other value,
// including the 0 of a not-yet-filled slot, counts as -1), bias included.
func (p *Perceptron) PredictSum(history []int8) int32 {
	sum := p.weight[0]
	for i, h := range history {
		if h == 1 {
			sum += p.weight[i+1]
		} else {
			sum -= p.weight[i+1]
		}
	}
	return sum
}

func clip(v int32) int32 {
	if v > weightClip {
		return weightClip
	}
	if v < -weightClip-1 {
		return -weightClip - 1
	}
	return v
}

// Train updates weights toward actualOutcome (+1 taken, -1 not-taken)
// whenever the prediction was wrong, or whenever it was right but
// predictedSum's magnitude did not exceed ThresholdT (the
// low-confidence retraining rule).
func (p *Perceptron) Train(history []int8, actualOutcome int32, predictedSum int32) {
	predictionCorrect := (actualOutcome > 0 && predictedSum > 0) || (actualOutcome <= 0 && predictedSum <= 0)

	absSum := predictedSum
	if absSum < 0 {
		absSum = -absSum
	}
	if predictionCorrect && absSum > ThresholdT {
		return
	}

	p.weight[0] = clip(p.weight[0] + actualOutcome)
	for i, h := range history {
		hv := int32(-1)
		if h == 1 {
			hv = 1
		}
		if hv == actualOutcome {
			p.weight[i+1] = clip(p.weight[i+1] + 1)
		} else {
			p.weight[i+1] = clip(p.weight[i+1] - 1)
		}
	}
}

// PerceptronTable is the set of per-index perceptrons plus the rolling
// global/local history used to form each prediction's input vector.
type PerceptronTable struct {
	perceptrons  []*Perceptron
	globalHist   []int8
	localHistory map[uint64][]int8
}

// NewPerceptronTable allocates numPerceptrons independent perceptrons,
// each with a zeroed weight vector.
func NewPerceptronTable() *PerceptronTable {
	perceptrons := make([]*Perceptron, numPerceptrons)
	for i := range perceptrons {
		perceptrons[i] = newPerceptron()
	}
	return &PerceptronTable{
		perceptrons:  perceptrons,
		globalHist:   make([]int8, globalHistoryLength),
		localHistory: make(map[uint64][]int8),
	}
}

func (t *PerceptronTable) index(pc uint64) uint64 {
	return (pc >> 2) % uint64(len(t.perceptrons))
}

func (t *PerceptronTable) history(pc uint64) []int8 {
	local, ok := t.localHistory[pc]
	if !ok {
		local = make([]int8, localHistoryLength)
	}
	combined := make([]int8, 0, totalHistoryLength)
	combined = append(combined, t.globalHist...)
	combined = append(combined, local...)
	return combined
}

// Predict returns the perceptron's raw sum for pc (positive means
// taken), along with the history vector used, so the caller can pass
// both to Update/Train once the outcome is known.
func (t *PerceptronTable) Predict(pc uint64) (sum int32, history []int8) {
	history = t.history(pc)
	sum = t.perceptrons[t.index(pc)].PredictSum(history)
	return sum, history
}

// Update trains the perceptron for pc against the actual outcome and
// advances the global/local history shift registers.
func (t *PerceptronTable) Update(pc uint64, history []int8, sum int32, taken bool) {
	outcome := int32(-1)
	if taken {
		outcome = 1
	}
	t.perceptrons[t.index(pc)].Train(history, outcome, sum)

	t.globalHist = shiftHistory(t.globalHist, taken)
	local := t.localHistory[pc]
	if local == nil {
		local = make([]int8, localHistoryLength)
	}
	t.localHistory[pc] = shiftHistory(local, taken)
}

func shiftHistory(h []int8, taken bool) []int8 {
	next := make([]int8, len(h))
	copy(next, h[1:])
	if taken {
		next[len(next)-1] = 1
	} else {
		next[len(next)-1] = -1
	}
	return next
}
