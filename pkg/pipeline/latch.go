// Package pipeline implements the five in-order stages (Fetch, Decode,
// Execute, Memory, Writeback) as functions over double-buffered latches,
// plus the hazard unit that stalls or forwards between them. The
// latch-pair double-buffering and reverse-dataflow evaluation order are
// this package's organizing idiom.
package pipeline

import (
	"github.com/punkvm-go/punkvm/pkg/bytecode"
	"github.com/punkvm-go/punkvm/pkg/flags"
	"github.com/punkvm-go/punkvm/pkg/predictor"
)

// IFIDLatch carries a fetched-but-undecoded instruction from Fetch to
// Decode.
type IFIDLatch struct {
	Valid bool
	PC    uint32
	Raw   []byte
}

// IDEXLatch carries a decoded instruction and its resolved source operand
// values from Decode to Execute.
type IDEXLatch struct {
	Valid bool
	PC    uint32
	Instr bytecode.Instruction

	OperandA, OperandB uint64
	StoreValue         uint64 // for Store: the value to write

	PredictedTaken  bool
	PredictedTarget uint32
	// PredictOutcome is only populated for OpJcc: the bookkeeping
	// PredictDirection returned, needed to train the bimodal and
	// perceptron predictors once the branch resolves in Execute.
	PredictOutcome predictor.Outcome
}

// EXMEMLatch carries an executed instruction's result from Execute to
// Memory.
type EXMEMLatch struct {
	Valid bool
	PC    uint32
	Instr bytecode.Instruction

	Result     uint64
	Flags      flags.Word
	MemAddr    uint64
	StoreValue uint64

	IsLoad  bool
	IsStore bool

	IsBranch      bool
	BranchTaken   bool
	BranchTarget  uint32
	Mispredicted  bool
	PredictedTaken bool
}

// MEMWBLatch carries a completed instruction's writeback value from
// Memory to Writeback.
type MEMWBLatch struct {
	Valid bool
	PC    uint32
	Instr bytecode.Instruction
	Result uint64
	Flags  flags.Word
}

// Latches is the full set of pipeline registers, each holding what the
// previous cycle's stage produced. Cycle reads every stage's inputs from
// these before any stage in the same cycle overwrites them, by evaluating
// stages in reverse dataflow order (WB, MEM, EX, ID, IF) and writing into
// a fresh Latches value that becomes "current" for the next cycle.
type Latches struct {
	IFID  IFIDLatch
	IDEX  IDEXLatch
	EXMEM EXMEMLatch
	MEMWB MEMWBLatch
}
