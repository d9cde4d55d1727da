// Package fpu implements the IEEE-754 floating point unit: single- and
// double-precision Add/Sub/Mul/Div/Sqrt/Neg/Abs/Cmp/Min/Max, operating
// directly on the raw bit patterns the pipeline carries between stages.
// Exception state is a sticky status word kept separate from each op's
// condition-code result, the way an FPSR splits them in hardware.
package fpu

import (
	"math"

	"github.com/punkvm-go/punkvm/pkg/flags"
)

// Precision selects the IEEE-754 width an operation is carried out at.
type Precision uint8

const (
	Single Precision = iota
	Double
)

// Op enumerates the operations Execute understands.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	Sqrt
	Neg
	Abs
	Cmp
	Min
	Max
	RoundNearest
	RoundToZero
	RoundUp
	RoundDown
)

// Execute performs op on a (and b, for binary ops) at the given
// precision. a, b and the result are carried as raw bit patterns: 64-bit
// words holding either a float64 pattern (Double) or a float32 pattern
// zero-extended into the low 32 bits (Single), matching how the register
// file stores both widths in one 64-bit slot.
//
// Execute never returns an error for Div-by-zero: IEEE-754 defines that
// case as ±Inf (or NaN for 0/0), signaled only via the sticky
// flags.FPDivideByZero / flags.FPInvalid bits, not a trap — unlike the
// integer ALU's Div, which is a fatal trap.
func Execute(op Op, precision Precision, a, b uint64) (result uint64, sticky flags.Word, err error) {
	fa := toFloat(a, precision)
	fb := toFloat(b, precision)

	var r float64
	switch op {
	case Add:
		r = fa + fb
	case Sub:
		r = fa - fb
	case Mul:
		r = fa * fb
	case Div:
		r = fa / fb
		if fb == 0 {
			if fa == 0 {
				sticky |= flags.FPInvalid
			} else {
				sticky |= flags.FPDivideByZero
			}
		}
	case Sqrt:
		if fa < 0 {
			sticky |= flags.FPInvalid
			r = math.NaN()
		} else {
			r = math.Sqrt(fa)
		}
	case Neg:
		r = -fa
	case Abs:
		r = math.Abs(fa)
	case Cmp:
		r = compareResult(fa, fb)
	case Min:
		r = math.Min(fa, fb)
	case Max:
		r = math.Max(fa, fb)
	case RoundNearest:
		r = math.RoundToEven(fa)
	case RoundToZero:
		r = math.Trunc(fa)
	case RoundUp:
		r = math.Ceil(fa)
	case RoundDown:
		r = math.Floor(fa)
	default:
		r = fa
	}

	if math.IsNaN(r) && op != Cmp {
		sticky |= flags.FPInvalid
	}
	if math.IsInf(r, 0) && op != Div && op != Cmp {
		sticky |= flags.FPOverflow
	}

	cc := conditionFlags(r)
	return fromFloat(r, precision), sticky | cc, nil
}

// compareResult follows IEEE-754 unordered comparison: NaN compares
// unordered with everything, encoded here as NaN so the caller's
// condition-flag derivation naturally reports neither Zero nor
// Negative — the "NaN compares unordered" property.
func compareResult(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a - b
}

func conditionFlags(r float64) flags.Word {
	if math.IsNaN(r) {
		return 0
	}
	return flags.Word(0).WithIntegerResult(r == 0, r < 0, false, false, false)
}

func toFloat(bits uint64, p Precision) float64 {
	if p == Single {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}

func fromFloat(f float64, p Precision) uint64 {
	if p == Single {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}
