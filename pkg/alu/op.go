package alu

// Op enumerates the operations Execute understands. It is distinct from
// bytecode.Opcode (which also covers FPU/VPU/memory/control opcodes) so
// this package has no dependency on the instruction-decoding package.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	UDiv
	Mod
	And
	Or
	Xor
	Not
	Shl
	Shr
	Sar
	Rol
	Ror
	Cmp
	Inc
	Dec
	Neg
)
