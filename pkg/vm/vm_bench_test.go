package vm

import (
	"testing"

	"github.com/punkvm-go/punkvm/pkg/bytecode"
	"github.com/punkvm-go/punkvm/pkg/cache"
)

func buildLoopProgram(iterations uint32) []byte {
	a := &asm{}
	a.emit(movImm(1, iterations))
	a.emit(threeReg(bytecode.OpAdd, 2, 2, 1)) // loop body
	a.emit(twoReg(bytecode.OpDec, 1, 1))
	a.emit(jccReg(1))
	a.emit(haltIns())
	a.patchBranch(3, 1)
	return a.bytes()
}

func buildMemorySweepProgram(words int) []byte {
	a := &asm{}
	a.emit(movImm(1, 0x800))
	for i := 0; i < words; i++ {
		a.emit(storeIns(1, int32(i*8), 1))
	}
	for i := 0; i < words; i++ {
		a.emit(loadIns(2, 1, int32(i*8)))
	}
	a.emit(haltIns())
	return a.bytes()
}

func benchRun(b *testing.B, cfg Config, program []byte) {
	b.Helper()
	for i := 0; i < b.N; i++ {
		v, err := New(cfg)
		if err != nil {
			b.Fatal(err)
		}
		if err := v.LoadProgram(program); err != nil {
			b.Fatal(err)
		}
		if err := v.Run(0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkALULoop(b *testing.B) {
	benchRun(b, DefaultConfig(), buildLoopProgram(100))
}

func BenchmarkMemorySweepWriteThrough(b *testing.B) {
	cfg := DefaultConfig()
	cfg.WritePolicy = cache.WriteThrough
	benchRun(b, cfg, buildMemorySweepProgram(64))
}

func BenchmarkMemorySweepWriteBack(b *testing.B) {
	cfg := DefaultConfig()
	cfg.WritePolicy = cache.WriteBack
	benchRun(b, cfg, buildMemorySweepProgram(64))
}

func BenchmarkForwardingChain(b *testing.B) {
	a := &asm{}
	a.emit(movImm(1, 1))
	for i := 0; i < 64; i++ {
		a.emit(threeReg(bytecode.OpAdd, 2, 1, 2))
	}
	a.emit(haltIns())
	benchRun(b, DefaultConfig(), a.bytes())
}
