// Package vm assembles the whole machine: register file, cache
// hierarchy, store buffer, branch predictor, return-address stack and
// the five-stage pipeline, driven one cycle at a time until a Halt
// retires or a fatal trap freezes the machine for inspection.
package vm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/punkvm-go/punkvm/pkg/alu"
	"github.com/punkvm-go/punkvm/pkg/bytecode"
	"github.com/punkvm-go/punkvm/pkg/cache"
	"github.com/punkvm-go/punkvm/pkg/pipeline"
	"github.com/punkvm-go/punkvm/pkg/predictor"
	"github.com/punkvm-go/punkvm/pkg/ras"
	"github.com/punkvm-go/punkvm/pkg/regfile"
	"github.com/punkvm-go/punkvm/pkg/storebuffer"
)

// Fatal trap kinds, re-exported so callers can errors.Is against one
// package regardless of which component raised the trap.
var (
	ErrDivideByZero         = alu.ErrDivideByZero
	ErrBusError             = cache.ErrBusError
	ErrMalformedInstruction = bytecode.ErrMalformedInstruction
	ErrStackOverflow        = pipeline.ErrStackOverflow
	ErrStackUnderflow       = pipeline.ErrStackUnderflow
)

// ErrProgramTooLarge reports a program that does not fit in RAM.
var ErrProgramTooLarge = errors.New("vm: program larger than configured memory")

// exitCodeRegister is the GPR whose low byte becomes the exit code when
// the machine halts. R0 by convention; programs that want a specific
// exit status move it there before Halt.
const exitCodeRegister = 0

// VM owns one instance of every component and the pipeline that drives
// them. All state is created at construction and mutated only by Cycle.
type VM struct {
	Config Config

	Regs *regfile.File
	Mem  *cache.Hierarchy
	SBuf *storebuffer.Buffer
	Pred *predictor.Hybrid
	RAS  *ras.Stack
	Pipe *pipeline.Pipeline

	log *zap.Logger

	programLen int

	// trap holds the fatal error that froze the machine, if any. The
	// architectural state is left exactly as it was when the trap fired.
	trap error
}

// Option customizes VM construction.
type Option func(*VM)

// WithLogger installs a structured logger for trace events. Without it
// the VM is silent regardless of EnableTracing.
func WithLogger(l *zap.Logger) Option {
	return func(v *VM) { v.log = l }
}

// New validates cfg and builds a machine from it. A nil error means the
// machine is ready for LoadProgram/Run.
func New(cfg Config, opts ...Option) (*VM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bimodalBits := uint(10)
	v := &VM{
		Config: cfg,
		Regs:   regfile.New(cfg.NumRegisters, 16, 16),
		Mem:    cache.NewHierarchy(cfg.l1Config(), cfg.l1Config(), cfg.l2Config(), cfg.MemorySize),
		SBuf:   storebuffer.New(cfg.StoreBufferSize),
		Pred:   predictor.NewHybrid(bimodalBits, cfg.BTBSize),
		RAS:    ras.New(cfg.RASSize),
		Pipe:   pipeline.New(0, 0, cfg.EnableForwarding, cfg.EnableHazardDetection),
		log:    zap.NewNop(),
	}
	v.Pipe.FetchWindow = cfg.FetchBufferSize
	v.Regs.SP = cfg.StackBase + cfg.StackSize
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// LoadProgram copies an encoded instruction stream into RAM at address 0
// and points the pipeline at it. The stream is raw back-to-back encoded
// instructions; any container format around them is the loader's
// concern, not this package's.
func (v *VM) LoadProgram(code []byte) error {
	if len(code) > v.Config.MemorySize {
		return fmt.Errorf("%w: %d bytes into %d bytes of RAM", ErrProgramTooLarge, len(code), v.Config.MemorySize)
	}
	copy(v.Mem.RAM, code)
	v.programLen = len(code)
	v.Pipe.PC = 0
	v.Pipe.CodeEnd = uint32(len(code))
	return nil
}

func (v *VM) deps() pipeline.Deps {
	return pipeline.Deps{
		Regs:           v.Regs,
		Mem:            v.Mem,
		SBuf:           v.SBuf,
		Pred:           v.Pred,
		RAS:            v.RAS,
		StackLowBound:  v.Config.StackBase,
		StackHighBound: v.Config.StackBase + v.Config.StackSize,
	}
}

// Cycle advances the machine one clock. On a fatal trap the machine
// freezes: the error is recorded, Halted becomes true, and every later
// Cycle returns the same error without touching state.
func (v *VM) Cycle() error {
	if v.trap != nil {
		return v.trap
	}
	if err := v.Pipe.Cycle(v.deps()); err != nil {
		v.trap = err
		v.log.Error("fatal trap", zap.Error(err), zap.Uint32("pc", v.Pipe.PC), zap.Uint64("cycle", v.Pipe.Stats.Cycles))
		return err
	}
	if v.Config.EnableTracing {
		v.log.Debug("cycle",
			zap.Uint64("n", v.Pipe.Stats.Cycles),
			zap.Uint32("pc", v.Pipe.PC),
			zap.Uint64("retired", v.Pipe.Stats.Retired),
			zap.Bool("halted", v.Pipe.Halted),
		)
	}
	return nil
}

// Halted reports whether the machine has stopped, either by retiring a
// Halt (and draining the pipeline) or by freezing on a fatal trap.
func (v *VM) Halted() bool {
	return v.trap != nil || (v.Pipe.Halted && v.Pipe.Drained())
}

// Run cycles the machine until it halts, then drains the store buffer so
// every architecturally committed store is visible in memory. maxCycles
// bounds runaway programs; 0 means no bound.
func (v *VM) Run(maxCycles uint64) error {
	for !v.Halted() {
		if maxCycles > 0 && v.Pipe.Stats.Cycles >= maxCycles {
			return fmt.Errorf("vm: exceeded cycle budget of %d without halting", maxCycles)
		}
		if err := v.Cycle(); err != nil {
			return err
		}
	}
	return v.DrainStores()
}

// DrainStores flushes every pending store-buffer entry to the cache
// hierarchy, one of the two drain points the buffer has (the other being
// on-demand drains when the Memory stage finds it full).
func (v *VM) DrainStores() error {
	for {
		e, ok := v.SBuf.DrainOne()
		if !ok {
			return nil
		}
		if _, err := v.Mem.AccessData(e.Addr, e.Width, true, e.Value); err != nil {
			v.trap = err
			return err
		}
	}
}

// ExitCode derives the process-style exit status from the designated
// GPR's low byte, the calling convention for halting programs.
func (v *VM) ExitCode() int {
	return int(v.Regs.GPR[exitCodeRegister] & 0xFF)
}

// Trap returns the fatal error that froze the machine, or nil while it
// is still runnable.
func (v *VM) Trap() error { return v.trap }
