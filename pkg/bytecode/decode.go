package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedInstruction is returned when a byte stream cannot be decoded
// into a valid Instruction: unknown opcode, unknown format, a size marker
// that disagrees with the format's expected operand length, or a buffer
// truncated before the header or operands are complete.
var ErrMalformedInstruction = errors.New("bytecode: malformed instruction")

// headerSize is {opcode:8, format:16, size_marker:8}, always four bytes
// regardless of format.
const headerSize = 4

// Decode reads one instruction from the front of buf and returns it along
// with the number of bytes consumed. buf may contain trailing bytes
// belonging to later instructions; only the consumed prefix is
// interpreted.
func Decode(buf []byte) (Instruction, int, error) {
	if len(buf) < headerSize {
		return Instruction{}, 0, fmt.Errorf("%w: truncated header (have %d bytes)", ErrMalformedInstruction, len(buf))
	}

	op := Opcode(buf[0])
	if !op.valid() {
		return Instruction{}, 0, fmt.Errorf("%w: unknown opcode 0x%02x", ErrMalformedInstruction, buf[0])
	}
	format := Format(binary.LittleEndian.Uint16(buf[1:3]))
	sizeMarker := buf[3]

	body := buf[headerSize:]
	operands, bodyLen, err := decodeOperands(format, body)
	if err != nil {
		return Instruction{}, 0, err
	}
	if int(sizeMarker) != bodyLen {
		return Instruction{}, 0, fmt.Errorf("%w: size marker %d disagrees with decoded operand length %d", ErrMalformedInstruction, sizeMarker, bodyLen)
	}

	total := headerSize + bodyLen
	ins := Instruction{
		Opcode:   op,
		Format:   format,
		Operands: operands,
		Size:     total,
	}
	if len(operands) > 0 && operands[0].Kind == ArgReg {
		ins.Dst = operands[0].Reg
	}
	return ins, total, nil
}

// decodeOperands interprets body according to format and returns the
// operand list plus how many bytes of body it consumed.
func decodeOperands(format Format, body []byte) ([]Operand, int, error) {
	need := func(n int) error {
		if len(body) < n {
			return fmt.Errorf("%w: truncated operands (need %d, have %d)", ErrMalformedInstruction, n, len(body))
		}
		return nil
	}

	switch format {
	case FormatNoArgs:
		return nil, 0, nil

	case FormatRegReg:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgReg, Reg: body[1]},
		}, 2, nil

	case FormatRegRegReg, FormatVecRegRegReg:
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgReg, Reg: body[1]},
			{Kind: ArgReg, Reg: body[2]},
		}, 3, nil

	case FormatVecRegReg:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgReg, Reg: body[1]},
		}, 2, nil

	case FormatRegImm8:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgImm8, Imm: uint64(body[1])},
		}, 2, nil

	case FormatRegImm16:
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgImm16, Imm: uint64(binary.LittleEndian.Uint16(body[1:3]))},
		}, 3, nil

	case FormatRegImm32:
		if err := need(5); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgImm32, Imm: uint64(binary.LittleEndian.Uint32(body[1:5]))},
		}, 5, nil

	case FormatRegImm64:
		if err := need(9); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgImm64, Imm: binary.LittleEndian.Uint64(body[1:9])},
		}, 9, nil

	case FormatRegMem:
		if err := need(6); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgMemRef, Base: body[1], Disp: int32(binary.LittleEndian.Uint32(body[2:6]))},
		}, 6, nil

	case FormatMemReg:
		if err := need(6); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgMemRef, Base: body[0], Disp: int32(binary.LittleEndian.Uint32(body[1:5]))},
			{Kind: ArgReg, Reg: body[5]},
		}, 6, nil

	case FormatAddr32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgRelAddr32, Imm: uint64(binary.LittleEndian.Uint32(body[0:4]))},
		}, 4, nil

	case FormatRegAddr32:
		if err := need(5); err != nil {
			return nil, 0, err
		}
		return []Operand{
			{Kind: ArgReg, Reg: body[0]},
			{Kind: ArgRelAddr32, Imm: uint64(binary.LittleEndian.Uint32(body[1:5]))},
		}, 5, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown format 0x%04x", ErrMalformedInstruction, uint16(format))
	}
}

// Encode serializes ins back into its wire form. Used by tests to assert
// the round-trip property and by the assembler-free bench loader to build
// synthetic programs in-process.
func Encode(ins Instruction) []byte {
	var body []byte
	for _, op := range ins.Operands {
		switch op.Kind {
		case ArgReg:
			body = append(body, op.Reg)
		case ArgImm8:
			body = append(body, byte(op.Imm))
		case ArgImm16:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(op.Imm))
			body = append(body, b[:]...)
		case ArgImm32, ArgRelAddr32, ArgAbsAddr32:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(op.Imm))
			body = append(body, b[:]...)
		case ArgImm64:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], op.Imm)
			body = append(body, b[:]...)
		case ArgMemRef:
			body = append(body, op.Base)
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(op.Disp))
			body = append(body, b[:]...)
		}
	}

	header := []byte{
		byte(ins.Opcode),
		byte(uint16(ins.Format)),
		byte(uint16(ins.Format) >> 8),
		byte(len(body)),
	}
	return append(header, body...)
}

// RelativeOffset computes the PC-relative branch offset stored in a
// branch instruction's address operand: the displacement from the byte
// immediately after the branch instruction to target.
func RelativeOffset(sourcePC uint32, instrSize int, target uint32) int32 {
	return int32(target) - int32(sourcePC) - int32(instrSize)
}

// ResolveRelative turns a decoded relative offset back into an absolute
// target address given the PC the branch instruction started at.
func ResolveRelative(sourcePC uint32, instrSize int, offset int32) uint32 {
	return uint32(int32(sourcePC) + int32(instrSize) + offset)
}
