package vm

import (
	"fmt"

	"github.com/punkvm-go/punkvm/pkg/cache"
)

// Config carries every construction-time option the engine recognizes.
// Field names follow the option table in the external interface contract
// (memory_size, num_registers, l1_cache_size, ...). Zero values are not
// filled in: Validate rejects them, so start from DefaultConfig.
type Config struct {
	MemorySize   int
	NumRegisters int

	L1CacheSize       int
	L2CacheSize       int
	LineSize          int
	Associativity     int
	WritePolicy       cache.WritePolicy
	ReplacementPolicy cache.ReplacementPolicy

	StoreBufferSize int

	StackSize uint32
	StackBase uint32

	FetchBufferSize int

	BTBSize int
	RASSize int

	EnableForwarding      bool
	EnableHazardDetection bool
	EnableTracing         bool
}

// DefaultConfig returns the baseline machine: 64 KiB of RAM, 19 GPRs, a
// 4 KiB write-through L1 pair over a 16 KiB write-back L2, and every
// hazard mechanism enabled.
func DefaultConfig() Config {
	return Config{
		MemorySize:            64 * 1024,
		NumRegisters:          19,
		L1CacheSize:           4 * 1024,
		L2CacheSize:           16 * 1024,
		LineSize:              64,
		Associativity:         4,
		WritePolicy:           cache.WriteThrough,
		ReplacementPolicy:     cache.LRU,
		StoreBufferSize:       8,
		StackSize:             4 * 1024,
		StackBase:             60 * 1024,
		FetchBufferSize:       1,
		BTBSize:               64,
		RASSize:               16,
		EnableForwarding:      true,
		EnableHazardDetection: true,
	}
}

// ConfigError is a construction-time rejection: a descriptive kind plus
// the offending option, returned (never panicked) per the error policy.
type ConfigError struct {
	Option string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("vm: invalid config option %s: %s", e.Option, e.Detail)
}

// Validate checks every option for internal consistency. It returns the
// first violation found as a *ConfigError.
func (c Config) Validate() error {
	if c.MemorySize <= 0 {
		return &ConfigError{Option: "memory_size", Detail: "must be positive"}
	}
	if c.NumRegisters < 16 {
		return &ConfigError{Option: "num_registers", Detail: fmt.Sprintf("must be at least 16, got %d", c.NumRegisters)}
	}
	if c.LineSize <= 0 || c.LineSize&(c.LineSize-1) != 0 {
		return &ConfigError{Option: "line_size", Detail: fmt.Sprintf("must be a positive power of two, got %d", c.LineSize)}
	}
	if c.Associativity <= 0 {
		return &ConfigError{Option: "associativity", Detail: "must be positive"}
	}
	for _, lvl := range []struct {
		name string
		size int
	}{{"l1_cache_size", c.L1CacheSize}, {"l2_cache_size", c.L2CacheSize}} {
		if lvl.size <= 0 {
			return &ConfigError{Option: lvl.name, Detail: "must be positive"}
		}
		if lvl.size%(c.LineSize*c.Associativity) != 0 {
			return &ConfigError{Option: lvl.name, Detail: fmt.Sprintf(
				"%d is not divisible by line_size*associativity (%d)", lvl.size, c.LineSize*c.Associativity)}
		}
	}
	if c.L2CacheSize < c.L1CacheSize {
		return &ConfigError{Option: "l2_cache_size", Detail: "L2 must be at least as large as L1 for inclusion"}
	}
	if c.StoreBufferSize < 1 {
		return &ConfigError{Option: "store_buffer_size", Detail: "must hold at least one entry"}
	}
	if c.FetchBufferSize < 1 {
		return &ConfigError{Option: "fetch_buffer_size", Detail: "must be at least 1"}
	}
	if c.BTBSize < 1 {
		return &ConfigError{Option: "btb_size", Detail: "must be at least 1"}
	}
	if c.RASSize < 1 {
		return &ConfigError{Option: "ras_size", Detail: "must be at least 1"}
	}
	if uint64(c.StackBase)+uint64(c.StackSize) > uint64(c.MemorySize) {
		return &ConfigError{Option: "stack_base", Detail: fmt.Sprintf(
			"stack region [%#x, %#x) exceeds memory size %#x", c.StackBase, uint64(c.StackBase)+uint64(c.StackSize), c.MemorySize)}
	}
	return nil
}

func (c Config) l1Config() cache.Config {
	return cache.Config{
		Size:              c.L1CacheSize,
		LineSize:          c.LineSize,
		Associativity:     c.Associativity,
		WritePolicy:       c.WritePolicy,
		ReplacementPolicy: c.ReplacementPolicy,
	}
}

func (c Config) l2Config() cache.Config {
	return cache.Config{
		Size:              c.L2CacheSize,
		LineSize:          c.LineSize,
		Associativity:     c.Associativity,
		// L2 is always write-back here: a write-through L2 under a
		// write-through L1 would make every store three RAM writes for
		// no modeling value. The write_policy option governs L1-D.
		WritePolicy:       cache.WriteBack,
		ReplacementPolicy: c.ReplacementPolicy,
	}
}
