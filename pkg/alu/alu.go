// Package alu implements the scalar integer arithmetic/logic unit: pure
// functions from (op, operands) to (result, flags), with no pipeline or
// register-file state of their own.
package alu

import (
	"errors"
	"math/bits"

	"github.com/punkvm-go/punkvm/pkg/flags"
)

// ErrDivideByZero is a fatal trap: Div, UDiv and Mod by zero abort
// execution rather than returning a sentinel value.
var ErrDivideByZero = errors.New("alu: divide by zero")

// BarrelShift performs a variable left/right shift as a hardware barrel
// shifter would: each bit of amount conditionally contributes its own
// power-of-two shift stage.
func BarrelShift(data uint64, amount uint8, left bool) uint64 {
	amount &= 0x3F
	for stage := uint(0); stage < 6; stage++ {
		bit := uint8(1) << stage
		if amount&bit == 0 {
			continue
		}
		shiftBy := uint(bit)
		if left {
			data <<= shiftBy
		} else {
			data >>= shiftBy
		}
	}
	return data
}

// Execute dispatches op against operandA (and operandB where the opcode
// is binary), returning the raw result and the integer flag bits that
// result implies. The caller (the Execute pipeline stage) merges these
// flags into the architectural flag word via flags.Word.WithIntegerResult,
// which leaves any sticky FPU bits untouched.
//
// Execute returns ErrDivideByZero for Div/UDiv/Mod with a zero divisor;
// every other opcode always succeeds.
func Execute(op Op, operandA, operandB uint64) (result uint64, f flags.Word, err error) {
	switch op {
	case Add:
		result = operandA + operandB
		f = addFlags(operandA, operandB, result)
	case Sub, Cmp:
		result = operandA - operandB
		f = subFlags(operandA, operandB, result)
	case Mul:
		hi, lo := bits.Mul64(operandA, operandB)
		result = lo
		f = resultFlags(result, hi != 0)
	case Div:
		if operandB == 0 {
			return 0, f, ErrDivideByZero
		}
		sa, sb := int64(operandA), int64(operandB)
		result = uint64(sa / sb)
		f = resultFlags(result, false)
	case UDiv:
		if operandB == 0 {
			return 0, f, ErrDivideByZero
		}
		result = operandA / operandB
		f = resultFlags(result, false)
	case Mod:
		if operandB == 0 {
			return 0, f, ErrDivideByZero
		}
		sa, sb := int64(operandA), int64(operandB)
		result = uint64(sa % sb)
		f = resultFlags(result, false)
	case And:
		result = operandA & operandB
		f = resultFlags(result, false)
	case Or:
		result = operandA | operandB
		f = resultFlags(result, false)
	case Xor:
		result = operandA ^ operandB
		f = resultFlags(result, false)
	case Not:
		result = ^operandA
		f = resultFlags(result, false)
	case Shl:
		result = BarrelShift(operandA, uint8(operandB), true)
		f = resultFlags(result, false)
	case Shr:
		result = BarrelShift(operandA, uint8(operandB), false)
		f = resultFlags(result, false)
	case Sar:
		result = uint64(int64(operandA) >> (uint8(operandB) & 0x3F))
		f = resultFlags(result, false)
	case Rol:
		result = bits.RotateLeft64(operandA, int(uint8(operandB)&0x3F))
		f = resultFlags(result, false)
	case Ror:
		result = bits.RotateLeft64(operandA, -int(uint8(operandB)&0x3F))
		f = resultFlags(result, false)
	case Inc:
		result = operandA + 1
		f = addFlags(operandA, 1, result)
	case Dec:
		result = operandA - 1
		f = subFlags(operandA, 1, result)
	case Neg:
		result = -operandA
		f = subFlags(0, operandA, result)
	default:
		result = operandA
		f = resultFlags(result, false)
	}
	return result, f, nil
}

func resultFlags(result uint64, carry bool) flags.Word {
	return flags.Word(0).WithIntegerResult(
		result == 0,
		int64(result) < 0,
		carry,
		false,
		flags.ParityTable8[byte(result)],
	)
}

func addFlags(a, b, result uint64) flags.Word {
	carry := result < a
	overflow := (a^result)&(b^result)>>63 != 0
	return flags.Word(0).WithIntegerResult(
		result == 0,
		int64(result) < 0,
		carry,
		overflow,
		flags.ParityTable8[byte(result)],
	)
}

func subFlags(a, b, result uint64) flags.Word {
	borrow := a < b
	overflow := (a^b)&(a^result)>>63 != 0
	return flags.Word(0).WithIntegerResult(
		result == 0,
		int64(result) < 0,
		borrow,
		overflow,
		flags.ParityTable8[byte(result)],
	)
}
