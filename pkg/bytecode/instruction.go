package bytecode

// ArgKind tags what an Operand holds.
type ArgKind uint8

const (
	ArgNone ArgKind = iota
	ArgReg
	ArgImm8
	ArgImm16
	ArgImm32
	ArgImm64
	ArgAbsAddr32
	ArgRelAddr32
	ArgMemRef // base register + signed 32-bit displacement
)

// Operand is one decoded argument of an Instruction. Only the fields
// matching Kind are meaningful; the rest are zero.
type Operand struct {
	Kind ArgKind
	Reg  uint8
	Base uint8
	Disp int32
	Imm  uint64
}

// Format distinguishes the operand-count/shape family an Instruction
// belongs to, carried in the {opcode, format, size_marker} header's
// middle field.
type Format uint16

const (
	FormatNoArgs Format = iota
	FormatRegReg
	FormatRegRegReg
	FormatRegImm8
	FormatRegImm16
	FormatRegImm32
	FormatRegImm64
	FormatRegMem
	FormatMemReg
	FormatAddr32
	FormatRegAddr32 // conditional branch: condition register + relative target
	FormatVecRegReg
	FormatVecRegRegReg
)

// Instruction is one decoded bytecode instruction: an opcode, the encoding
// format it was decoded under, a destination register (when applicable)
// and its operand list.
type Instruction struct {
	Opcode   Opcode
	Format   Format
	Dst      uint8
	Operands []Operand
	// Size is the number of bytes this instruction occupied in the
	// stream, including header, operands and any trailer.
	Size int
}

// RegOperand returns the i'th operand's register number and whether
// operand i exists and is register-kind.
func (ins Instruction) RegOperand(i int) (uint8, bool) {
	if i < 0 || i >= len(ins.Operands) {
		return 0, false
	}
	op := ins.Operands[i]
	return op.Reg, op.Kind == ArgReg
}

// ImmOperand returns the i'th operand's immediate value and whether
// operand i exists and carries an immediate.
func (ins Instruction) ImmOperand(i int) (uint64, bool) {
	if i < 0 || i >= len(ins.Operands) {
		return 0, false
	}
	op := ins.Operands[i]
	switch op.Kind {
	case ArgImm8, ArgImm16, ArgImm32, ArgImm64, ArgAbsAddr32, ArgRelAddr32:
		return op.Imm, true
	default:
		return 0, false
	}
}

// SourceRegisters returns every register operand referenced as a source,
// used by the hazard unit to compute RAW dependencies. When this
// instruction writes a register, operand 0 is that destination (not a
// source) and is skipped; Store and Cmp/FCmp, which read every operand
// instead of writing one, keep operand 0.
func (ins Instruction) SourceRegisters() []uint8 {
	start := 0
	if ins.WritesRegister() && len(ins.Operands) > 0 && ins.Operands[0].Kind == ArgReg {
		start = 1
	}

	var regs []uint8
	for _, op := range ins.Operands[start:] {
		if op.Kind == ArgReg {
			regs = append(regs, op.Reg)
		} else if op.Kind == ArgMemRef {
			regs = append(regs, op.Base)
		}
	}
	return regs
}

// WritesRegister reports whether this instruction has an architectural
// register destination (branches, HALT, and bare compares do not).
func (ins Instruction) WritesRegister() bool {
	switch ins.Opcode {
	case OpCmp, OpFCmp, OpStore, OpJmp, OpJcc, OpCall, OpRet, OpHalt, OpNop:
		return false
	default:
		return true
	}
}

// WritesFlags reports whether retiring this instruction updates the
// integer condition flags. Register moves, memory ops and control flow
// leave the flag word alone; everything the ALU or FPU computes sets it.
func (ins Instruction) WritesFlags() bool {
	switch ins.Opcode {
	case OpMov, OpMovImm:
		return false
	}
	switch ClassOf(ins.Opcode) {
	case ClassALU, ClassFPU:
		return true
	default:
		return false
	}
}
