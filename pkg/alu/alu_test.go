package alu

import (
	"errors"
	"math"
	"testing"

	"github.com/punkvm-go/punkvm/pkg/flags"
)

func TestALUArithmetic(t *testing.T) {
	r, _, err := mustExec(t, Add, 2, 3)
	if err != nil || r != 5 {
		t.Fatalf("2+3 = %d, err %v", r, err)
	}
	r, _, err = mustExec(t, Sub, 10, 4)
	if err != nil || r != 6 {
		t.Fatalf("10-4 = %d, err %v", r, err)
	}
	r, _, err = mustExec(t, Mul, 6, 7)
	if err != nil || r != 42 {
		t.Fatalf("6*7 = %d, err %v", r, err)
	}
	r, _, err = mustExec(t, Div, 20, 4)
	if err != nil || r != 5 {
		t.Fatalf("20/4 = %d, err %v", r, err)
	}
}

func TestALULogical(t *testing.T) {
	r, _, _ := mustExec(t, And, 0b1100, 0b1010)
	if r != 0b1000 {
		t.Fatalf("AND mismatch: %b", r)
	}
	r, _, _ = mustExec(t, Or, 0b1100, 0b1010)
	if r != 0b1110 {
		t.Fatalf("OR mismatch: %b", r)
	}
	r, _, _ = mustExec(t, Xor, 0b1100, 0b1010)
	if r != 0b0110 {
		t.Fatalf("XOR mismatch: %b", r)
	}
	r, _, _ = mustExec(t, Not, 0, 0)
	if r != math.MaxUint64 {
		t.Fatalf("NOT 0 = %d", r)
	}
}

func TestALUFlags(t *testing.T) {
	_, f, _ := mustExec(t, Sub, 5, 5)
	if !f.Set(flags.Zero) {
		t.Fatalf("5-5 should set Zero")
	}

	_, f, _ = mustExec(t, Sub, 5, 10)
	if !f.Set(flags.Negative) {
		t.Fatalf("5-10 should set Negative")
	}

	_, f, _ = mustExec(t, Add, uint64(int64(math.MaxInt64)), 1)
	if !f.Set(flags.Overflow) {
		t.Fatalf("MaxInt64+1 should set signed Overflow")
	}

	_, f, _ = mustExec(t, Add, math.MaxUint64, 1)
	if !f.Set(flags.Carry) {
		t.Fatalf("MaxUint64+1 should set Carry")
	}
}

func TestALUDivideByZeroTraps(t *testing.T) {
	for _, op := range []Op{Div, UDiv, Mod} {
		_, _, err := Execute(op, 10, 0)
		if !errors.Is(err, ErrDivideByZero) {
			t.Fatalf("op %v by zero: expected ErrDivideByZero, got %v", op, err)
		}
	}
}

func TestBarrelShift(t *testing.T) {
	if got := BarrelShift(1, 4, true); got != 16 {
		t.Fatalf("1<<4 = %d", got)
	}
	if got := BarrelShift(256, 4, false); got != 16 {
		t.Fatalf("256>>4 = %d", got)
	}
}

func TestRotate(t *testing.T) {
	r, _, _ := mustExec(t, Rol, 1, 1)
	if r != 2 {
		t.Fatalf("ROL 1,1 = %d", r)
	}
	r, _, _ = mustExec(t, Ror, 1, 1)
	if r != 1<<63 {
		t.Fatalf("ROR 1,1 = %#x", r)
	}
}

func mustExec(t *testing.T, op Op, a, b uint64) (uint64, flags.Word, error) {
	t.Helper()
	r, f, err := Execute(op, a, b)
	return r, f, err
}
