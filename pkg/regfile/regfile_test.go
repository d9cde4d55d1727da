package regfile

import (
	"errors"
	"testing"
)

func TestReadWriteGPR(t *testing.T) {
	f := New(19, 16, 8)
	if err := f.WriteGPR(3, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := f.ReadGPR(3)
	if err != nil || got != 42 {
		t.Fatalf("got %d, err %v", got, err)
	}
}

func TestGPROutOfRange(t *testing.T) {
	f := New(19, 16, 8)
	_, err := f.ReadGPR(200)
	var target *ErrRegisterOutOfRange
	if !errors.As(err, &target) {
		t.Fatalf("expected ErrRegisterOutOfRange, got %v", err)
	}
}

func TestVRegWriteTruncatesAndZeroPads(t *testing.T) {
	f := New(4, 4, 2)
	if err := f.WriteVReg(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := f.ReadVReg(0)
	if got[0] != 1 || got[3] != 4 || got[4] != 0 {
		t.Fatalf("unexpected vreg contents: %v", got)
	}

	long := make([]byte, 40)
	for i := range long {
		long[i] = byte(i + 1)
	}
	if err := f.WriteVReg(1, long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = f.ReadVReg(1)
	if len(got) != 32 || got[31] != 32 {
		t.Fatalf("expected a write of 40 bytes truncated to 32, got %v", got)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	f := New(4, 4, 2)
	f.WriteGPR(0, 10)
	snap := f.Snapshot()
	f.WriteGPR(0, 99)

	got, _ := snap.ReadGPR(0)
	if got != 10 {
		t.Fatalf("snapshot should be unaffected by later mutation, got %d", got)
	}
}
