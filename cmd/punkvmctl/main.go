// punkvmctl drives the PunkVM core from the command line: run a flat
// instruction-stream file to completion, dump the full telemetry block,
// or run the built-in smoke benchmarks. Container formats, symbol
// tables and disassembly are external tools' business; this binary only
// feeds raw encoded instructions to the engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/punkvm-go/punkvm/internal/config"
	"github.com/punkvm-go/punkvm/internal/telemetry"
	"github.com/punkvm-go/punkvm/pkg/bytecode"
	"github.com/punkvm-go/punkvm/pkg/vm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "punkvmctl",
		Short: "PunkVM — pedagogical pipelined CPU core",
	}

	var configPath string
	var maxCycles uint64
	var trace bool
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML machine configuration file")
	rootCmd.PersistentFlags().Uint64Var(&maxCycles, "max-cycles", 0, "abort after this many cycles (0 = unlimited)")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "emit cycle-by-cycle trace events")

	loadMachine := func(programPath string) (*vm.VM, error) {
		cfg := vm.DefaultConfig()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
		if trace {
			cfg.EnableTracing = true
		}
		logger, err := telemetry.NewLogger(cfg.EnableTracing)
		if err != nil {
			return nil, err
		}
		v, err := vm.New(cfg, vm.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		code, err := os.ReadFile(programPath)
		if err != nil {
			return nil, fmt.Errorf("reading program: %w", err)
		}
		if err := v.LoadProgram(code); err != nil {
			return nil, err
		}
		return v, nil
	}

	runCmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run an instruction stream to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadMachine(args[0])
			if err != nil {
				return err
			}
			if err := v.Run(maxCycles); err != nil {
				return fmt.Errorf("trap after %d cycles: %w", v.Snapshot().Cycles, err)
			}
			s := v.Snapshot()
			fmt.Printf("halted after %d cycles, %d instructions retired (IPC %.3f)\n",
				s.Cycles, s.Retired, s.IPC)
			os.Exit(v.ExitCode())
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats <program>",
		Short: "Run an instruction stream and print the full telemetry block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadMachine(args[0])
			if err != nil {
				return err
			}
			runErr := v.Run(maxCycles)
			fmt.Print(v.Snapshot().String())
			if runErr != nil {
				return fmt.Errorf("trap: %w", runErr)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in smoke benchmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, bm := range smokeBenches() {
				cfg := vm.DefaultConfig()
				v, err := vm.New(cfg)
				if err != nil {
					return err
				}
				if err := v.LoadProgram(bm.program); err != nil {
					return err
				}
				if err := v.Run(1_000_000); err != nil {
					return fmt.Errorf("%s: %w", bm.name, err)
				}
				s := v.Snapshot()
				fmt.Printf("%-24s %8d cycles  %8d retired  IPC %.3f  stalls %d  flushes %d\n",
					bm.name, s.Cycles, s.Retired, s.IPC, s.Stalls, s.Flushes)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, statsCmd, benchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type smokeBench struct {
	name    string
	program []byte
}

// smokeBenches builds small in-process programs covering the ALU
// forwarding path, a predictable loop and the memory hierarchy.
func smokeBenches() []smokeBench {
	enc := func(instrs ...bytecode.Instruction) []byte {
		var out []byte
		for _, ins := range instrs {
			out = append(out, bytecode.Encode(ins)...)
		}
		return out
	}
	reg := func(r uint8) bytecode.Operand { return bytecode.Operand{Kind: bytecode.ArgReg, Reg: r} }
	movImm := func(r uint8, imm uint32) bytecode.Instruction {
		return bytecode.Instruction{
			Opcode:   bytecode.OpMovImm,
			Format:   bytecode.FormatRegImm32,
			Operands: []bytecode.Operand{reg(r), {Kind: bytecode.ArgImm32, Imm: uint64(imm)}},
		}
	}
	add := func(dst, a, b uint8) bytecode.Instruction {
		return bytecode.Instruction{
			Opcode:   bytecode.OpAdd,
			Format:   bytecode.FormatRegRegReg,
			Operands: []bytecode.Operand{reg(dst), reg(a), reg(b)},
		}
	}
	dec := func(r uint8) bytecode.Instruction {
		return bytecode.Instruction{
			Opcode:   bytecode.OpDec,
			Format:   bytecode.FormatRegReg,
			Operands: []bytecode.Operand{reg(r), reg(r)},
		}
	}
	halt := bytecode.Instruction{Opcode: bytecode.OpHalt, Format: bytecode.FormatNoArgs}

	// Dependent-add chain: every instruction forwards from the previous.
	var chain []bytecode.Instruction
	chain = append(chain, movImm(1, 1))
	for i := 0; i < 256; i++ {
		chain = append(chain, add(2, 1, 2))
	}
	chain = append(chain, halt)

	// Countdown loop: mov, then [add acc; dec; jcc back] until zero.
	loop := []bytecode.Instruction{
		movImm(1, 1000),
		add(2, 2, 1),
		dec(1),
		{
			Opcode:   bytecode.OpJcc,
			Format:   bytecode.FormatRegAddr32,
			Operands: []bytecode.Operand{reg(1), {Kind: bytecode.ArgRelAddr32}},
		},
		halt,
	}
	// Patch the backward offset: the jcc sits after mov(9) + add(7) +
	// dec(6) bytes and is 9 bytes long; it targets the add.
	jccPC := uint32(9 + 7 + 6)
	loop[3].Operands[1].Imm = uint64(uint32(bytecode.RelativeOffset(jccPC, 9, 9)))

	// Memory sweep: store then load back a cache-straddling window.
	var sweep []bytecode.Instruction
	sweep = append(sweep, movImm(1, 0x2000))
	for i := 0; i < 128; i++ {
		sweep = append(sweep, bytecode.Instruction{
			Opcode:   bytecode.OpStore,
			Format:   bytecode.FormatMemReg,
			Operands: []bytecode.Operand{{Kind: bytecode.ArgMemRef, Base: 1, Disp: int32(i * 8)}, reg(1)},
		})
	}
	for i := 0; i < 128; i++ {
		sweep = append(sweep, bytecode.Instruction{
			Opcode:   bytecode.OpLoad,
			Format:   bytecode.FormatRegMem,
			Operands: []bytecode.Operand{reg(2), {Kind: bytecode.ArgMemRef, Base: 1, Disp: int32(i * 8)}},
		})
	}
	sweep = append(sweep, halt)

	return []smokeBench{
		{"forwarding-chain", enc(chain...)},
		{"countdown-loop", enc(loop...)},
		{"memory-sweep", enc(sweep...)},
	}
}
