package pipeline

import "github.com/punkvm-go/punkvm/pkg/bytecode"

// ForwardSource identifies which stage's freshly computed output a source
// operand's value should be bypassed from instead of read from the
// register file.
type ForwardSource uint8

const (
	ForwardNone ForwardSource = iota
	// ForwardFromEX bypasses the result the Execute stage produced this
	// very cycle (the instruction one ahead in program order).
	ForwardFromEX
	// ForwardFromMEM bypasses the result the Memory stage produced this
	// cycle (the instruction two ahead; this is the load-to-use path).
	ForwardFromMEM
)

// regKind buckets an opcode's destination/source registers by which
// register file they live in. RAW detection must compare kinds as well as
// numbers: ADD's R3 and FADD's F3 share an index but not a register.
type regKind uint8

const (
	kindGPR regKind = iota
	kindFPR
	kindVREG
)

func registerKind(op bytecode.Opcode) regKind {
	switch bytecode.ClassOf(op) {
	case bytecode.ClassFPU:
		return kindFPR
	case bytecode.ClassVPU:
		return kindVREG
	default:
		return kindGPR
	}
}

// HazardUnit detects RAW, load-use and flag hazards between the
// instruction in Decode and the older instructions currently in the
// Execute and Memory stages, and decides whether each source operand can
// be forwarded or the decode must stall.
//
// An in-order 5-stage pipeline only ever has one older instruction in
// EX and one in MEM to check against, so detection is two direct
// register comparisons rather than the dependency bitmaps an
// out-of-order window would need. The instruction in Writeback needs no
// check at all: Writeback commits before Decode reads the register file
// within the same cycle, so its value is already architectural by the
// time the consumer looks.
type HazardUnit struct {
	ForwardingEnabled bool
	DetectionEnabled  bool
}

// Decision is what the hazard unit concluded for one Decode-stage
// instruction's source registers.
type Decision struct {
	// Stall is true when Decode must hold (insert a bubble) rather than
	// issue this cycle: either a load-use hazard (the producer is a Load
	// still in Execute, whose value only exists after it passes Memory),
	// or, with forwarding disabled, any RAW or flag dependency at all.
	Stall    bool
	ForwardA ForwardSource
	ForwardB ForwardSource
}

// Evaluate inspects decoded's source registers (and, for conditional
// branches, its flag dependency) against the producers currently sitting
// in the Execute (idex) and Memory (exmem) stages.
//
// When DetectionEnabled is false, Evaluate always returns a zero
// Decision (no stall, no forwarding): a program with a genuine RAW
// hazard will then read stale register values. This is the documented
// unsafe mode — correctness is not guaranteed with detection disabled,
// by design, for studying what a pipeline without hazard handling does.
func (h *HazardUnit) Evaluate(decoded bytecode.Instruction, idex IDEXLatch, exmem EXMEMLatch) Decision {
	if !h.DetectionEnabled {
		return Decision{}
	}

	var d Decision
	kind := registerKind(decoded.Opcode)
	for i, reg := range decoded.SourceRegisters() {
		src, loadUse := h.resolveOne(reg, kind, idex, exmem)
		if i == 0 {
			d.ForwardA = src
		} else if i == 1 {
			d.ForwardB = src
		}
		if loadUse || (!h.ForwardingEnabled && src != ForwardNone) {
			d.Stall = true
		}
	}

	// A conditional branch consumes the flag word. Flags from the
	// instruction in Execute reach the branch's own Execute one cycle
	// later via the EX/MEM latch bypass, so with forwarding enabled no
	// stall is needed; with it disabled the branch must wait for the
	// producer to retire.
	if decoded.Opcode == bytecode.OpJcc && !h.ForwardingEnabled {
		if (idex.Valid && idex.Instr.WritesFlags()) || (exmem.Valid && exmem.Instr.WritesFlags()) {
			d.Stall = true
		}
	}
	return d
}

// resolveOne reports which stage output (if any) reg must be bypassed
// from, and whether the dependency is a load-use hazard that forwarding
// alone cannot resolve this cycle. A returned source of ForwardNone with
// loadUse=false means the register file already holds the right value.
//
// Note the source is reported even when ForwardingEnabled is false: the
// caller uses a non-None source as "a dependency exists" and converts it
// into a stall instead of a bypass.
func (h *HazardUnit) resolveOne(reg uint8, kind regKind, idex IDEXLatch, exmem EXMEMLatch) (src ForwardSource, loadUse bool) {
	if idex.Valid && idex.Instr.WritesRegister() && idex.Instr.Dst == reg && registerKind(idex.Instr.Opcode) == kind {
		if idex.Instr.Opcode == bytecode.OpLoad {
			// The producer is a Load still in Execute: its value only
			// materializes after Memory runs next cycle, too late even
			// for the bypass network. One bubble makes it forwardable.
			return ForwardNone, true
		}
		return ForwardFromEX, false
	}
	if exmem.Valid && exmem.Instr.WritesRegister() && exmem.Instr.Dst == reg && registerKind(exmem.Instr.Opcode) == kind {
		return ForwardFromMEM, false
	}
	return ForwardNone, false
}
