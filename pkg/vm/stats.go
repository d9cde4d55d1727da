package vm

import (
	"fmt"

	"github.com/punkvm-go/punkvm/pkg/cache"
	"github.com/punkvm-go/punkvm/pkg/ras"
)

// Stats is a point-in-time snapshot of every counter the machine keeps,
// safe to hold after the VM is discarded.
type Stats struct {
	Cycles   uint64
	Retired  uint64
	IPC      float64
	Stalls   uint64
	Flushes  uint64
	Forwards uint64

	Branches          uint64
	BranchMispredicts uint64
	PredictorAccuracy float64

	L1I cache.Stats
	L1D cache.Stats
	L2  cache.Stats

	StoreBufferPeak     int
	StoreBufferCap      int
	StoreBufferForwards uint64
	StoreBufferDrains   uint64

	RAS ras.Stats
}

// Snapshot gathers the current statistics from every component.
func (v *VM) Snapshot() Stats {
	p := v.Pipe.Stats
	s := Stats{
		Cycles:   p.Cycles,
		Retired:  p.Retired,
		Stalls:   p.Stalls,
		Flushes:  p.Flushes,
		Forwards: p.Forwards,

		Branches:          p.BranchCount,
		BranchMispredicts: p.BranchMispredicts,
		PredictorAccuracy: v.Pred.Accuracy(),

		L1I: v.Mem.L1I.Stats,
		L1D: v.Mem.L1D.Stats,
		L2:  v.Mem.L2.Stats,

		StoreBufferPeak:     v.SBuf.Peak(),
		StoreBufferCap:      v.SBuf.Cap(),
		StoreBufferForwards: v.SBuf.Forwards(),
		StoreBufferDrains:   v.SBuf.Drains(),

		RAS: v.RAS.Stats(),
	}
	if p.Cycles > 0 {
		s.IPC = float64(p.Retired) / float64(p.Cycles)
	}
	return s
}

// IPC returns retired instructions per cycle so far.
func (v *VM) IPC() float64 {
	if v.Pipe.Stats.Cycles == 0 {
		return 0
	}
	return float64(v.Pipe.Stats.Retired) / float64(v.Pipe.Stats.Cycles)
}

// String renders the snapshot as the human-readable telemetry block the
// CLI's stats command prints.
func (s Stats) String() string {
	hitRate := func(cs cache.Stats) float64 {
		if cs.Accesses() == 0 {
			return 0
		}
		return float64(cs.Hits) / float64(cs.Accesses()) * 100
	}
	return fmt.Sprintf(`PunkVM Statistics:
  Cycles: %d
  Retired: %d
  IPC: %.3f
  Stalls: %d
  Flushes: %d
  Forwards: %d

  Branches: %d (%d mispredicted, %.1f%% direction accuracy)

  L1-I: %d hits / %d misses (%.1f%%)
  L1-D: %d hits / %d misses (%.1f%%)
  L2:   %d hits / %d misses (%.1f%%)

  Store buffer: peak %d/%d, %d forwards, %d drains
  RAS: depth %d/%d, %d hits / %d misses (%.1f%% accuracy)
`,
		s.Cycles, s.Retired, s.IPC, s.Stalls, s.Flushes, s.Forwards,
		s.Branches, s.BranchMispredicts, s.PredictorAccuracy*100,
		s.L1I.Hits, s.L1I.Misses, hitRate(s.L1I),
		s.L1D.Hits, s.L1D.Misses, hitRate(s.L1D),
		s.L2.Hits, s.L2.Misses, hitRate(s.L2),
		s.StoreBufferPeak, s.StoreBufferCap, s.StoreBufferForwards, s.StoreBufferDrains,
		s.RAS.CurrentDepth, s.RAS.MaxDepth, s.RAS.Hits, s.RAS.Misses, s.RAS.Accuracy,
	)
}
