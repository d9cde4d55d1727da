// Package regfile holds the VM's architectural state: general-purpose
// integer registers, floating-point registers, vector registers, the
// program counter, stack pointer and condition-flag word. It has no
// behavior of its own beyond bounds-checked access — the pipeline stages
// own when and how it's read or written.
package regfile

import (
	"fmt"

	"github.com/punkvm-go/punkvm/pkg/flags"
)

// File is the register file, sized at VM construction time from the
// machine configuration (19 GPRs by default).
type File struct {
	GPR   []uint64
	FPR   []uint64 // raw IEEE-754 bit patterns, read via pkg/fpu
	VREG  [][]byte // 256-bit slots; the low 16 bytes are the 128-bit view
	PC    uint32
	SP    uint32
	Flags flags.Word
}

// New allocates a register file with numGPR general-purpose registers,
// numFPR floating-point registers and numVREG vector registers.
func New(numGPR, numFPR, numVREG int) *File {
	vregs := make([][]byte, numVREG)
	for i := range vregs {
		vregs[i] = make([]byte, 32)
	}
	return &File{
		GPR:  make([]uint64, numGPR),
		FPR:  make([]uint64, numFPR),
		VREG: vregs,
	}
}

// ErrRegisterOutOfRange reports an operand referencing a register number
// beyond the configured register file size.
type ErrRegisterOutOfRange struct {
	Kind  string
	Index uint8
	Size  int
}

func (e *ErrRegisterOutOfRange) Error() string {
	return fmt.Sprintf("regfile: %s register %d out of range (have %d)", e.Kind, e.Index, e.Size)
}

// ReadGPR returns GPR[i], or an error if i is out of range.
func (f *File) ReadGPR(i uint8) (uint64, error) {
	if int(i) >= len(f.GPR) {
		return 0, &ErrRegisterOutOfRange{Kind: "GPR", Index: i, Size: len(f.GPR)}
	}
	return f.GPR[i], nil
}

// WriteGPR sets GPR[i], or returns an error if i is out of range. GPR 0
// is architecturally writable (unlike some RISC ISAs) since spec does not
// reserve a hard-wired zero register.
func (f *File) WriteGPR(i uint8, v uint64) error {
	if int(i) >= len(f.GPR) {
		return &ErrRegisterOutOfRange{Kind: "GPR", Index: i, Size: len(f.GPR)}
	}
	f.GPR[i] = v
	return nil
}

// ReadFPR returns FPR[i], or an error if i is out of range.
func (f *File) ReadFPR(i uint8) (uint64, error) {
	if int(i) >= len(f.FPR) {
		return 0, &ErrRegisterOutOfRange{Kind: "FPR", Index: i, Size: len(f.FPR)}
	}
	return f.FPR[i], nil
}

// WriteFPR sets FPR[i], or returns an error if i is out of range.
func (f *File) WriteFPR(i uint8, v uint64) error {
	if int(i) >= len(f.FPR) {
		return &ErrRegisterOutOfRange{Kind: "FPR", Index: i, Size: len(f.FPR)}
	}
	f.FPR[i] = v
	return nil
}

// ReadVReg returns a copy of VREG[i]'s raw bytes, or an error if i is out
// of range.
func (f *File) ReadVReg(i uint8) ([]byte, error) {
	if int(i) >= len(f.VREG) {
		return nil, &ErrRegisterOutOfRange{Kind: "VREG", Index: i, Size: len(f.VREG)}
	}
	out := make([]byte, len(f.VREG[i]))
	copy(out, f.VREG[i])
	return out, nil
}

// WriteVReg copies v into VREG[i] (zero-padded or truncated to the
// register's width), or returns an error if i is out of range.
func (f *File) WriteVReg(i uint8, v []byte) error {
	if int(i) >= len(f.VREG) {
		return &ErrRegisterOutOfRange{Kind: "VREG", Index: i, Size: len(f.VREG)}
	}
	dst := f.VREG[i]
	for j := range dst {
		dst[j] = 0
	}
	copy(dst, v)
	return nil
}

// Snapshot returns a deep copy of the register file; later writes to the
// original do not affect the copy.
func (f *File) Snapshot() *File {
	cp := &File{
		GPR:   append([]uint64(nil), f.GPR...),
		FPR:   append([]uint64(nil), f.FPR...),
		VREG:  make([][]byte, len(f.VREG)),
		PC:    f.PC,
		SP:    f.SP,
		Flags: f.Flags,
	}
	for i, v := range f.VREG {
		cp.VREG[i] = append([]byte(nil), v...)
	}
	return cp
}
