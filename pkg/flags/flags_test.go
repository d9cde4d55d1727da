package flags

import "testing"

func TestWithIntegerResultPreservesSticky(t *testing.T) {
	w := Word(0).WithSticky(FPDivideByZero)
	w = w.WithIntegerResult(true, false, false, false, false)

	if !w.Set(Zero) {
		t.Fatalf("expected Zero flag set, got %v", w)
	}
	if !w.Set(FPDivideByZero) {
		t.Fatalf("sticky FPDivideByZero was cleared by integer update: %v", w)
	}
}

func TestWithIntegerResultClearsPriorIntegerBits(t *testing.T) {
	w := Word(0).WithIntegerResult(true, true, true, true, true)
	w = w.WithIntegerResult(false, false, false, false, false)

	if w.Any(Zero | Negative | Carry | Overflow | Parity) {
		t.Fatalf("expected all integer flags cleared, got %v", w)
	}
}

func TestParityTable8(t *testing.T) {
	if !ParityTable8[0x00] {
		t.Fatalf("0x00 has even parity (zero bits set)")
	}
	if ParityTable8[0x01] {
		t.Fatalf("0x01 has odd parity")
	}
	if !ParityTable8[0x03] {
		t.Fatalf("0x03 has even parity (two bits set)")
	}
}
