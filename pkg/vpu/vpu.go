// Package vpu implements the packed SIMD vector unit: 128-bit and 256-bit
// lane-wise operations over integer and float lanes. Vectors are raw
// byte slices reinterpreted per DataType rather than a Go generic, since
// the VM only ever sees raw register bytes at this layer.
package vpu

import (
	"encoding/binary"
	"math"

	"github.com/punkvm-go/punkvm/pkg/flags"
)

// Width is the vector register width in bytes.
type Width int

const (
	Width128 Width = 16
	Width256 Width = 32
)

// DataType selects how a vector's bytes are sliced into lanes.
type DataType uint8

const (
	I8 DataType = iota
	I16
	I32
	I64
	F32
	F64
)

// LaneSize returns the number of bytes one lane of dt occupies.
func LaneSize(dt DataType) int {
	switch dt {
	case I8:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	default:
		return 8
	}
}

// Op enumerates the operations Execute understands.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	Min
	Max
	And
	Or
	Xor
	Shl
	Shr
)

// Execute applies op lane-wise to a and b (both the same width, inferred
// from len(a)) under dt, returning a new vector of the same width plus
// the sticky FPU exception bits any float lane raised, ORed across all
// lanes. Integer lanes wrap on overflow (two's-complement truncation),
// matching ordinary Go integer arithmetic semantics rather than
// trapping, and never raise an exception bit.
func Execute(op Op, dt DataType, a, b []byte) ([]byte, flags.Word) {
	laneSize := LaneSize(dt)
	out := make([]byte, len(a))
	lanes := len(a) / laneSize

	var sticky flags.Word
	for i := 0; i < lanes; i++ {
		off := i * laneSize
		la := a[off : off+laneSize]
		lb := b[off : off+laneSize]
		lo := out[off : off+laneSize]
		sticky |= executeLane(op, dt, la, lb, lo)
	}
	return out, sticky
}

func executeLane(op Op, dt DataType, a, b, out []byte) flags.Word {
	if dt == F32 || dt == F64 {
		return executeFloatLane(op, dt, a, b, out)
	}

	av := readInt(dt, a)
	bv := readInt(dt, b)
	var r uint64
	switch op {
	case Add:
		r = av + bv
	case Sub:
		r = av - bv
	case Mul:
		r = av * bv
	case Div:
		if bv == 0 {
			r = 0
		} else {
			r = av / bv
		}
	case Min:
		if int64(av) < int64(bv) {
			r = av
		} else {
			r = bv
		}
	case Max:
		if int64(av) > int64(bv) {
			r = av
		} else {
			r = bv
		}
	case And:
		r = av & bv
	case Or:
		r = av | bv
	case Xor:
		r = av ^ bv
	case Shl:
		r = av << (bv & laneShiftMask(dt))
	case Shr:
		r = av >> (bv & laneShiftMask(dt))
	}
	writeInt(dt, out, r)
	return 0
}

func executeFloatLane(op Op, dt DataType, a, b, out []byte) flags.Word {
	av := readFloat(dt, a)
	bv := readFloat(dt, b)
	var sticky flags.Word
	var r float64
	switch op {
	case Add:
		r = av + bv
	case Sub:
		r = av - bv
	case Mul:
		r = av * bv
	case Div:
		r = av / bv
		if bv == 0 {
			if av == 0 {
				sticky |= flags.FPInvalid
			} else {
				sticky |= flags.FPDivideByZero
			}
		}
	case Min:
		r = math.Min(av, bv)
	case Max:
		r = math.Max(av, bv)
	default:
		r = av
	}
	if math.IsNaN(r) {
		sticky |= flags.FPInvalid
	}
	writeFloat(dt, out, r)
	return sticky
}

func laneShiftMask(dt DataType) uint64 {
	return uint64(LaneSize(dt)*8 - 1)
}

func readInt(dt DataType, b []byte) uint64 {
	switch dt {
	case I8:
		return uint64(b[0])
	case I16:
		return uint64(binary.LittleEndian.Uint16(b))
	case I32:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func writeInt(dt DataType, b []byte, v uint64) {
	switch dt {
	case I8:
		b[0] = byte(v)
	case I16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case I32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func readFloat(dt DataType, b []byte) float64 {
	if dt == F32 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func writeFloat(dt DataType, b []byte, v float64) {
	if dt == F32 {
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		return
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// FromI32x4 packs four int32 lanes into a 128-bit vector.
func FromI32x4(v [4]int32) []byte {
	out := make([]byte, Width128)
	for i, lane := range v {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(lane))
	}
	return out
}

// FromF32x4 packs four float32 lanes into a 128-bit vector.
func FromF32x4(v [4]float32) []byte {
	out := make([]byte, Width128)
	for i, lane := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(lane))
	}
	return out
}

// FromI32x8 packs eight int32 lanes into a 256-bit vector.
func FromI32x8(v [8]int32) []byte {
	out := make([]byte, Width256)
	for i, lane := range v {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(lane))
	}
	return out
}
