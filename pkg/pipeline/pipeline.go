package pipeline

import (
	"errors"
	"fmt"

	"github.com/punkvm-go/punkvm/pkg/alu"
	"github.com/punkvm-go/punkvm/pkg/bytecode"
	"github.com/punkvm-go/punkvm/pkg/cache"
	"github.com/punkvm-go/punkvm/pkg/flags"
	"github.com/punkvm-go/punkvm/pkg/fpu"
	"github.com/punkvm-go/punkvm/pkg/predictor"
	"github.com/punkvm-go/punkvm/pkg/ras"
	"github.com/punkvm-go/punkvm/pkg/regfile"
	"github.com/punkvm-go/punkvm/pkg/storebuffer"
	"github.com/punkvm-go/punkvm/pkg/vpu"
)

// maxInstructionBytes bounds one Fetch's overfetch window: large enough
// to hold any encoded instruction (header + widest operand set) in a
// single cache access, even though Decode only consumes however many
// bytes the instruction actually needs.
const maxInstructionBytes = 16

// memoryAccessWidth is the width, in bytes, every Load/Store moves. The
// bytecode format carries no separate sub-word width field, so every
// memory access is a full 64-bit word; unaligned multi-byte accesses
// that straddle a cache line are still legal (pkg/cache decomposes them),
// this just fixes what "multi-byte" means here.
const memoryAccessWidth = 8

// vectorLaneType is the lane interpretation every VPU instruction uses.
// The bytecode format does not carry a separate datatype operand, so the
// pipeline fixes one configuration here; pkg/vpu itself supports the
// full datatype/width matrix and is exercised directly by its own tests.
const vectorLaneType = vpu.I32

var (
	// ErrStackOverflow is a fatal trap raised when a Call would push the
	// stack pointer below the configured stack region's low bound.
	ErrStackOverflow = errors.New("pipeline: stack overflow")
	// ErrStackUnderflow is a fatal trap raised when Ret is attempted
	// with SP already at the stack's high bound (nothing pushed).
	ErrStackUnderflow = errors.New("pipeline: stack underflow")
)

// returnAddrWidth is the size of one call-stack frame: a return address
// stored as a 64-bit word, keeping the stack word-aligned.
const returnAddrWidth = 8

// Pipeline owns the four inter-stage latches and the PC/flush control signals that
// connect them, and drives one Cycle at a time.
type Pipeline struct {
	Current Latches
	PC      uint32

	// CodeEnd is the first byte address past the loaded program. Fetch
	// stops producing instructions there; once the stop reaches an empty
	// pipeline the machine halts as if it had executed a Halt.
	CodeEnd uint32

	// FetchWindow is how many maxInstructionBytes-sized slots Fetch
	// pulls per access, the prefetch depth. Zero means 1.
	FetchWindow int

	Hazard HazardUnit

	Halted bool

	flush        bool
	fetchStopped bool

	Stats Stats
}

// Stats accumulates cycle-level counters for telemetry.
type Stats struct {
	Cycles            uint64
	Retired           uint64
	Stalls            uint64
	Flushes           uint64
	Forwards          uint64
	BranchCount       uint64
	BranchMispredicts uint64
}

// New returns a Pipeline starting execution at startPC with the program
// occupying [startPC, codeEnd), with forwarding and hazard detection
// configured per the two flags.
func New(startPC, codeEnd uint32, forwardingEnabled, hazardDetectionEnabled bool) *Pipeline {
	return &Pipeline{
		PC:      startPC,
		CodeEnd: codeEnd,
		Hazard: HazardUnit{
			ForwardingEnabled: forwardingEnabled,
			DetectionEnabled:  hazardDetectionEnabled,
		},
	}
}

// Drained reports whether every latch is empty, meaning a Halt has fully
// retired and no older instruction remains in flight.
func (p *Pipeline) Drained() bool {
	return !p.Current.IFID.Valid && !p.Current.IDEX.Valid && !p.Current.EXMEM.Valid && !p.Current.MEMWB.Valid
}

// Deps bundles every subsystem a cycle needs: the architectural register
// file, the cache hierarchy, the store buffer, the branch predictor and
// the return-address stack.
type Deps struct {
	Regs *regfile.File
	Mem  *cache.Hierarchy
	SBuf *storebuffer.Buffer
	Pred *predictor.Hybrid
	RAS  *ras.Stack

	// StackLowBound/StackHighBound delimit the software call stack in
	// memory. SP starts at the high bound and grows down; Call traps
	// with ErrStackOverflow below the low bound, Ret with
	// ErrStackUnderflow at the high bound.
	StackLowBound  uint32
	StackHighBound uint32
}

// Cycle advances the pipeline by one clock: it evaluates Writeback,
// Memory, Execute, Decode and Fetch in that order against the latches
// left over from the previous cycle, then installs the freshly produced
// latches as current for the next call. Evaluating in this reverse
// dataflow order lets a stage's same-cycle outputs feed the bypass
// network of the later-evaluated stages — Decode reads the value Execute
// just produced for the instruction one ahead of it — exactly as a
// synchronous pipeline's forwarding paths would.
//
// Stall behavior: a structural stall in Memory (store buffer full, or a
// load partially overlapping an undrained store) freezes the whole
// pipeline for the cycle. A load-use or RAW stall in Decode bubbles only
// Decode's output while the older stages keep flowing.
func (p *Pipeline) Cycle(d Deps) error {
	p.Stats.Cycles++
	p.flush = false

	var next Latches

	if err := p.doWriteback(d); err != nil {
		return err
	}

	memStall, err := p.doMemory(d, &next)
	if err != nil {
		return err
	}
	if memStall {
		p.Stats.Stalls++
		next.EXMEM = p.Current.EXMEM
		next.IDEX = p.Current.IDEX
		next.IFID = p.Current.IFID
		p.Current = next
		return nil
	}

	if err := p.doExecute(d, &next); err != nil {
		return err
	}

	decodeStall, err := p.doDecode(d, &next)
	if err != nil {
		return err
	}

	p.doFetch(d, &next, decodeStall)

	if decodeStall {
		p.Stats.Stalls++
		// The stalled instruction stays in IF/ID for a retry; a bubble
		// (the zero IDEX latch doDecode left) flows onward in its place.
		next.IFID = p.Current.IFID
	}

	p.Current = next

	// Running off the end of the program with nothing left in flight is
	// the implicit end-of-program halt. It must only take effect once
	// the pipeline is empty: a wrong-path fetch past CodeEnd is undone
	// by the flush of the branch that caused it.
	if p.fetchStopped && p.Drained() {
		p.Halted = true
	}
	return nil
}

func (p *Pipeline) doWriteback(d Deps) error {
	wb := p.Current.MEMWB
	if !wb.Valid {
		return nil
	}
	if wb.Instr.Opcode != bytecode.OpHalt {
		p.Stats.Retired++
	}

	if wb.Instr.WritesFlags() {
		d.Regs.Flags = d.Regs.Flags.WithIntegerFrom(wb.Flags)
	}
	d.Regs.Flags = d.Regs.Flags.WithSticky(wb.Flags)

	if !wb.Instr.WritesRegister() {
		return nil
	}
	switch bytecode.ClassOf(wb.Instr.Opcode) {
	case bytecode.ClassFPU:
		return d.Regs.WriteFPR(wb.Instr.Dst, wb.Result)
	case bytecode.ClassVPU:
		return d.Regs.WriteVReg(wb.Instr.Dst, uint64ToVRegBytes(wb.Result))
	default:
		return d.Regs.WriteGPR(wb.Instr.Dst, wb.Result)
	}
}

// doMemory processes the instruction in EXMEM (output of last cycle's
// Execute), producing next.MEMWB. It reports memStall=true when the
// store buffer cannot make progress this cycle: a store arriving at a
// full buffer, or a load partially overlapping an in-flight store. In
// both cases one buffered store is drained to the cache so the retry is
// guaranteed to eventually succeed.
func (p *Pipeline) doMemory(d Deps, next *Latches) (memStall bool, err error) {
	em := p.Current.EXMEM
	if !em.Valid {
		return false, nil
	}

	result := em.Result
	if em.IsStore {
		if d.SBuf.Full() {
			if err := p.drainOneStore(d); err != nil {
				return false, err
			}
			return true, nil
		}
		if err := d.SBuf.Push(em.MemAddr, memoryAccessWidth, em.StoreValue); err != nil {
			if errors.Is(err, storebuffer.ErrOverflow) {
				return true, nil
			}
			return false, err
		}
	} else if em.IsLoad {
		if v, ok, ferr := d.SBuf.Forward(em.MemAddr, memoryAccessWidth); ferr != nil {
			if errors.Is(ferr, storebuffer.ErrPartialOverlap) {
				// A partial overlap is never merged; drain toward the
				// overlapping store so the stalled load can retry
				// against the cache once it lands there.
				if err := p.drainOneStore(d); err != nil {
					return false, err
				}
				return true, nil
			}
			return false, ferr
		} else if ok {
			result = v
		} else {
			v, err := d.Mem.AccessData(em.MemAddr, memoryAccessWidth, false, 0)
			if err != nil {
				return false, err
			}
			result = v
		}
	}

	next.MEMWB = MEMWBLatch{
		Valid:  true,
		PC:     em.PC,
		Instr:  em.Instr,
		Result: result,
		Flags:  em.Flags,
	}
	return false, nil
}

func (p *Pipeline) drainOneStore(d Deps) error {
	entry, ok := d.SBuf.DrainOne()
	if !ok {
		return nil
	}
	_, err := d.Mem.AccessData(entry.Addr, entry.Width, true, entry.Value)
	return err
}

// doExecute processes the instruction in IDEX (output of last cycle's
// Decode), producing next.EXMEM. Branch/return resolution happens here:
// on a misprediction it sets p.flush/p.PC so the later-evaluated
// Decode and Fetch stages squash the wrong-path instruction already in
// flight and refetch from the corrected address this same cycle.
func (p *Pipeline) doExecute(d Deps, next *Latches) error {
	ix := p.Current.IDEX
	if !ix.Valid {
		return nil
	}

	em := EXMEMLatch{Valid: true, PC: ix.PC, Instr: ix.Instr}

	switch ix.Instr.Opcode {
	case bytecode.OpHalt:
		p.Halted = true

	case bytecode.OpNop:

	case bytecode.OpLoad:
		em.IsLoad = true
		em.MemAddr = ix.OperandA
	case bytecode.OpStore:
		em.IsStore = true
		em.MemAddr = ix.OperandA
		em.StoreValue = ix.StoreValue

	case bytecode.OpJmp, bytecode.OpJcc, bytecode.OpCall, bytecode.OpRet:
		if err := p.resolveBranch(d, ix, &em); err != nil {
			return err
		}

	default:
		switch bytecode.ClassOf(ix.Instr.Opcode) {
		case bytecode.ClassFPU:
			result, sticky, err := fpu.Execute(fpuOp(ix.Instr.Opcode), fpu.Double, ix.OperandA, ix.OperandB)
			if err != nil {
				return err
			}
			em.Result = result
			em.Flags = sticky
		case bytecode.ClassVPU:
			av := uint64ToVRegBytes(ix.OperandA)
			bv := uint64ToVRegBytes(ix.OperandB)
			out, sticky := vpu.Execute(vpuOp(ix.Instr.Opcode), vectorLaneType, av, bv)
			em.Result = vregBytesToUint64(out)
			em.Flags = sticky
		default:
			result, f, err := alu.Execute(aluOp(ix.Instr.Opcode), ix.OperandA, ix.OperandB)
			if err != nil {
				return err
			}
			em.Result = result
			em.Flags = f
		}
	}

	next.EXMEM = em
	return nil
}

func uint64ToVRegBytes(v uint64) []byte {
	out := make([]byte, 16)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

func vregBytesToUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// effectiveFlags returns the flag word a conditional branch in Execute
// should test: the committed architectural flags, overridden by the
// still-uncommitted flags of a producer currently in the Memory stage
// (the instruction one ahead in program order). Producers two or more
// ahead have already committed — Writeback runs before Execute within
// the cycle. With forwarding disabled this bypass doesn't exist and the
// hazard unit stalls the branch instead.
func (p *Pipeline) effectiveFlags(d Deps) flags.Word {
	f := d.Regs.Flags
	if em := p.Current.EXMEM; em.Valid && em.Instr.WritesFlags() && p.Hazard.ForwardingEnabled {
		f = f.WithIntegerFrom(em.Flags).WithSticky(em.Flags)
	}
	return f
}

// resolveBranch determines a branch's actual direction/target, updates
// the predictor and RAS, and sets p.flush/p.PC if the prediction
// made at Decode time was wrong.
func (p *Pipeline) resolveBranch(d Deps, ix IDEXLatch, em *EXMEMLatch) error {
	em.IsBranch = true
	p.Stats.BranchCount++

	instrSize := ix.Instr.Size
	fallthroughPC := ix.PC + uint32(instrSize)

	var actualTaken bool
	var actualTarget uint32

	switch ix.Instr.Opcode {
	case bytecode.OpJmp:
		actualTaken = true
		actualTarget = resolveTarget(ix)
	case bytecode.OpCall:
		if err := p.pushReturnAddress(d, fallthroughPC); err != nil {
			return err
		}
		actualTaken = true
		actualTarget = resolveTarget(ix)
		d.RAS.Push(fallthroughPC)
	case bytecode.OpRet:
		popped, err := p.popReturnAddress(d)
		if err != nil {
			return err
		}
		actualTaken = true
		actualTarget = popped
		// Unwind the RAS alongside the architectural stack. It may have
		// forgotten deep frames (bounded, evict-oldest), which is a
		// prediction miss, never a fault.
		d.RAS.Pop()
	case bytecode.OpJcc:
		// Two condition forms: with a register operand the branch is
		// taken while that register is nonzero (the loop idiom); bare,
		// it tests the Zero flag the preceding compare left.
		if _, hasReg := ix.Instr.RegOperand(0); hasReg {
			actualTaken = ix.OperandA != 0
		} else {
			actualTaken = p.effectiveFlags(d).Set(flags.Zero)
		}
		if actualTaken {
			actualTarget = resolveTarget(ix)
		} else {
			actualTarget = fallthroughPC
		}
	}

	// Direction predictors only ever see conditional branches; Jmp/Call
	// are unconditionally taken and Ret's target comes from the call
	// stack, so only the BTB (target prediction) applies to them.
	switch ix.Instr.Opcode {
	case bytecode.OpJcc:
		d.Pred.Update(ix.PredictOutcome, actualTaken, actualTarget)
	default:
		d.Pred.BTB.Update(uint64(ix.PC), actualTarget)
	}
	if ix.Instr.Opcode == bytecode.OpRet {
		d.RAS.UpdatePrediction(predictedRASTarget(ix), actualTarget)
	}

	em.BranchTaken = actualTaken
	em.BranchTarget = actualTarget
	em.PredictedTaken = ix.PredictedTaken

	mispredicted := actualTaken != ix.PredictedTaken || (actualTaken && actualTarget != ix.PredictedTarget)
	em.Mispredicted = mispredicted
	if mispredicted {
		p.Stats.BranchMispredicts++
		p.Stats.Flushes++
		p.flush = true
		p.fetchStopped = false
		p.PC = actualTarget
	}
	return nil
}

// pushReturnAddress writes returnPC to the memory-backed call stack,
// moving SP down one frame. The RAS predicts return targets; this stack
// is the architectural truth they are checked against.
func (p *Pipeline) pushReturnAddress(d Deps, returnPC uint32) error {
	if d.Regs.SP < d.StackLowBound+returnAddrWidth {
		return fmt.Errorf("%w: SP %#x at stack low bound %#x", ErrStackOverflow, d.Regs.SP, d.StackLowBound)
	}
	d.Regs.SP -= returnAddrWidth
	if _, err := d.Mem.AccessData(uint64(d.Regs.SP), returnAddrWidth, true, uint64(returnPC)); err != nil {
		return err
	}
	return nil
}

// popReturnAddress reads the return address SP points at and moves SP
// back up one frame.
func (p *Pipeline) popReturnAddress(d Deps) (uint32, error) {
	if d.Regs.SP >= d.StackHighBound {
		return 0, fmt.Errorf("%w: RET with SP %#x at stack high bound %#x", ErrStackUnderflow, d.Regs.SP, d.StackHighBound)
	}
	v, err := d.Mem.AccessData(uint64(d.Regs.SP), returnAddrWidth, false, 0)
	if err != nil {
		return 0, err
	}
	d.Regs.SP += returnAddrWidth
	return uint32(v), nil
}

func predictedRASTarget(ix IDEXLatch) *uint32 {
	if !ix.PredictedTaken {
		return nil
	}
	t := ix.PredictedTarget
	return &t
}

func resolveTarget(ix IDEXLatch) uint32 {
	imm, _ := ix.Instr.ImmOperand(len(ix.Instr.Operands) - 1)
	return bytecode.ResolveRelative(ix.PC, ix.Instr.Size, int32(uint32(imm)))
}

// doDecode processes the instruction in IFID (output of last cycle's
// Fetch), producing next.IDEX. It reports decodeStall=true on a
// load-use hazard (forwarding enabled) or any unresolved RAW dependency
// (forwarding disabled), in which case the caller holds IFID for a retry
// while a bubble advances in the instruction's place.
func (p *Pipeline) doDecode(d Deps, next *Latches) (decodeStall bool, err error) {
	fi := p.Current.IFID
	if p.flush || p.Halted {
		// Either the instruction Fetch produced last cycle is on the
		// mispredicted path, or a Halt resolved ahead of it; squash it
		// into a bubble instead of decoding it.
		next.IDEX = IDEXLatch{}
		return false, nil
	}
	if !fi.Valid {
		return false, nil
	}

	decoded, _, err := bytecode.Decode(fi.Raw)
	if err != nil {
		return false, err
	}
	decision := p.Hazard.Evaluate(decoded, p.Current.IDEX, p.Current.EXMEM)
	if decision.Stall {
		next.IDEX = IDEXLatch{}
		return true, nil
	}

	operandA, operandB, storeValue, err := p.resolveOperands(d, next, decoded, decision)
	if err != nil {
		return false, err
	}

	idex := IDEXLatch{
		Valid:      true,
		PC:         fi.PC,
		Instr:      decoded,
		OperandA:   operandA,
		OperandB:   operandB,
		StoreValue: storeValue,
	}

	if bytecode.IsBranch(decoded.Opcode) {
		p.predictBranch(d, fi.PC, decoded, &idex)
	} else {
		p.PC = fi.PC + uint32(decoded.Size)
	}

	next.IDEX = idex
	return false, nil
}

func (p *Pipeline) predictBranch(d Deps, pc uint32, decoded bytecode.Instruction, idex *IDEXLatch) {
	instrSize := uint32(decoded.Size)
	switch decoded.Opcode {
	case bytecode.OpJmp, bytecode.OpCall:
		idex.PredictedTaken = true
		idex.PredictedTarget = resolveTargetDecoded(pc, decoded)
	case bytecode.OpRet:
		// Ret is the one indirect branch in the ISA: its target comes
		// from the RAS, with the BTB as the fallback when the RAS has
		// nothing for it. Direct branches never consult the BTB — their
		// target is computed exactly from PC+offset.
		idex.PredictedTaken = true
		if target, ok := d.RAS.Predict(); ok {
			idex.PredictedTarget = target
		} else if target, ok := d.Pred.PredictTarget(uint64(pc)); ok {
			idex.PredictedTarget = target
		}
	case bytecode.OpJcc:
		taken, outcome := d.Pred.PredictDirection(uint64(pc))
		idex.PredictedTaken = taken
		idex.PredictOutcome = outcome
		if taken {
			idex.PredictedTarget = resolveTargetDecoded(pc, decoded)
		} else {
			idex.PredictedTarget = pc + instrSize
		}
	}

	if idex.PredictedTaken {
		p.PC = idex.PredictedTarget
	} else {
		p.PC = pc + instrSize
	}
}

func resolveTargetDecoded(pc uint32, decoded bytecode.Instruction) uint32 {
	imm, _ := decoded.ImmOperand(len(decoded.Operands) - 1)
	return bytecode.ResolveRelative(pc, decoded.Size, int32(uint32(imm)))
}

// resolveOperands reads decoded's source values, honoring the hazard
// unit's bypass decisions: a forwarded operand comes from the output the
// Execute or Memory stage produced earlier this same cycle (already
// sitting in next), everything else from the committed register file.
func (p *Pipeline) resolveOperands(d Deps, next *Latches, decoded bytecode.Instruction, decision Decision) (a, b, storeValue uint64, err error) {
	read := func(reg uint8, forward ForwardSource) (uint64, error) {
		switch forward {
		case ForwardFromEX:
			p.Stats.Forwards++
			return next.EXMEM.Result, nil
		case ForwardFromMEM:
			p.Stats.Forwards++
			return next.MEMWB.Result, nil
		default:
			return readArchRegister(d, decoded.Opcode, reg)
		}
	}

	srcs := decoded.SourceRegisters()
	switch decoded.Opcode {
	case bytecode.OpStore:
		base, err := read(srcs[0], decision.ForwardA)
		if err != nil {
			return 0, 0, 0, err
		}
		disp := decoded.Operands[0].Disp
		a = uint64(int64(base) + int64(disp))
		if len(srcs) > 1 {
			storeValue, err = read(srcs[1], decision.ForwardB)
			if err != nil {
				return 0, 0, 0, err
			}
		}
		return a, 0, storeValue, nil
	case bytecode.OpLoad:
		base, err := read(srcs[0], decision.ForwardA)
		if err != nil {
			return 0, 0, 0, err
		}
		var disp int32
		for _, op := range decoded.Operands {
			if op.Kind == bytecode.ArgMemRef {
				disp = op.Disp
			}
		}
		return uint64(int64(base) + int64(disp)), 0, 0, nil
	}

	if len(srcs) > 0 {
		a, err = read(srcs[0], decision.ForwardA)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	if len(srcs) > 1 {
		b, err = read(srcs[1], decision.ForwardB)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	if imm, ok := decoded.ImmOperand(len(decoded.Operands) - 1); ok && !bytecode.IsBranch(decoded.Opcode) {
		b = imm
	}
	return a, b, 0, nil
}

func readArchRegister(d Deps, op bytecode.Opcode, reg uint8) (uint64, error) {
	switch bytecode.ClassOf(op) {
	case bytecode.ClassFPU:
		return d.Regs.ReadFPR(reg)
	case bytecode.ClassVPU:
		v, err := d.Regs.ReadVReg(reg)
		if err != nil {
			return 0, err
		}
		return vregBytesToUint64(v), nil
	default:
		return d.Regs.ReadGPR(reg)
	}
}

// doFetch fetches the next instruction window from the pipeline's PC
// into next.IFID, unless held is true (a decode stall this cycle, in
// which case the caller re-installs the previous IFID unchanged).
func (p *Pipeline) doFetch(d Deps, next *Latches, held bool) {
	if held || p.Halted {
		return
	}
	pc := p.PC
	if pc >= p.CodeEnd {
		// Past the end of the program: stop producing instructions, but
		// don't halt yet — this may be a wrong-path fetch a pending
		// flush will redirect.
		p.fetchStopped = true
		return
	}
	window := maxInstructionBytes
	if p.FetchWindow > 1 {
		window *= p.FetchWindow
	}
	if remaining := int(p.CodeEnd - pc); remaining < window {
		window = remaining
	}
	raw, err := d.Mem.FetchInstruction(uint64(pc), window)
	if err != nil {
		p.fetchStopped = true
		return
	}
	p.fetchStopped = false
	next.IFID = IFIDLatch{Valid: true, PC: pc, Raw: raw}
}

func aluOp(op bytecode.Opcode) alu.Op {
	switch op {
	case bytecode.OpAdd, bytecode.OpMov, bytecode.OpMovImm:
		return alu.Add
	case bytecode.OpInc:
		return alu.Inc
	case bytecode.OpSub:
		return alu.Sub
	case bytecode.OpCmp:
		return alu.Cmp
	case bytecode.OpDec:
		return alu.Dec
	case bytecode.OpNeg:
		return alu.Neg
	case bytecode.OpMul:
		return alu.Mul
	case bytecode.OpDiv:
		return alu.Div
	case bytecode.OpUDiv:
		return alu.UDiv
	case bytecode.OpMod:
		return alu.Mod
	case bytecode.OpAnd:
		return alu.And
	case bytecode.OpOr:
		return alu.Or
	case bytecode.OpXor:
		return alu.Xor
	case bytecode.OpNot:
		return alu.Not
	case bytecode.OpShl:
		return alu.Shl
	case bytecode.OpShr:
		return alu.Shr
	case bytecode.OpSar:
		return alu.Sar
	case bytecode.OpRol:
		return alu.Rol
	case bytecode.OpRor:
		return alu.Ror
	default:
		return alu.Add
	}
}

func fpuOp(op bytecode.Opcode) fpu.Op {
	switch op {
	case bytecode.OpFAdd:
		return fpu.Add
	case bytecode.OpFSub:
		return fpu.Sub
	case bytecode.OpFMul:
		return fpu.Mul
	case bytecode.OpFDiv:
		return fpu.Div
	case bytecode.OpFSqrt:
		return fpu.Sqrt
	case bytecode.OpFNeg:
		return fpu.Neg
	case bytecode.OpFAbs:
		return fpu.Abs
	case bytecode.OpFCmp:
		return fpu.Cmp
	case bytecode.OpFMin:
		return fpu.Min
	case bytecode.OpFMax:
		return fpu.Max
	case bytecode.OpFRound:
		return fpu.RoundNearest
	case bytecode.OpFTrunc:
		return fpu.RoundToZero
	case bytecode.OpFCeil:
		return fpu.RoundUp
	case bytecode.OpFFloor:
		return fpu.RoundDown
	default:
		return fpu.Add
	}
}

func vpuOp(op bytecode.Opcode) vpu.Op {
	switch op {
	case bytecode.OpVAdd:
		return vpu.Add
	case bytecode.OpVSub:
		return vpu.Sub
	case bytecode.OpVMul:
		return vpu.Mul
	case bytecode.OpVDiv:
		return vpu.Div
	case bytecode.OpVAnd:
		return vpu.And
	case bytecode.OpVOr:
		return vpu.Or
	case bytecode.OpVXor:
		return vpu.Xor
	case bytecode.OpVMin:
		return vpu.Min
	case bytecode.OpVMax:
		return vpu.Max
	case bytecode.OpVShl:
		return vpu.Shl
	case bytecode.OpVShr:
		return vpu.Shr
	default:
		return vpu.Add
	}
}
