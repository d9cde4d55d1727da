// Package config loads machine configuration from TOML files and maps
// it onto the engine's Config struct. Option names match the external
// interface contract (memory_size, l1_cache_size, write_policy, ...);
// anything left out of the file keeps its default.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/punkvm-go/punkvm/pkg/cache"
	"github.com/punkvm-go/punkvm/pkg/vm"
)

// File is the TOML-facing view of vm.Config. Pointer fields distinguish
// "absent, keep default" from an explicit zero.
type File struct {
	MemorySize   *int `toml:"memory_size"`
	NumRegisters *int `toml:"num_registers"`

	L1CacheSize       *int    `toml:"l1_cache_size"`
	L2CacheSize       *int    `toml:"l2_cache_size"`
	LineSize          *int    `toml:"line_size"`
	Associativity     *int    `toml:"associativity"`
	WritePolicy       *string `toml:"write_policy"`
	ReplacementPolicy *string `toml:"replacement_policy"`

	StoreBufferSize *int `toml:"store_buffer_size"`

	StackSize *uint32 `toml:"stack_size"`
	StackBase *uint32 `toml:"stack_base"`

	FetchBufferSize *int `toml:"fetch_buffer_size"`

	BTBSize *int `toml:"btb_size"`
	RASSize *int `toml:"ras_size"`

	EnableForwarding      *bool `toml:"enable_forwarding"`
	EnableHazardDetection *bool `toml:"enable_hazard_detection"`
	EnableTracing         *bool `toml:"enable_tracing"`
}

// Load reads a TOML file and returns the resulting validated vm.Config.
func Load(path string) (vm.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vm.Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes over the default configuration and validates
// the result.
func Parse(data []byte) (vm.Config, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return vm.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := f.Apply(vm.DefaultConfig())
	if err != nil {
		return vm.Config{}, err
	}
	return cfg, cfg.Validate()
}

// Apply overlays the file's set options onto base.
func (f File) Apply(base vm.Config) (vm.Config, error) {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&base.MemorySize, f.MemorySize)
	setInt(&base.NumRegisters, f.NumRegisters)
	setInt(&base.L1CacheSize, f.L1CacheSize)
	setInt(&base.L2CacheSize, f.L2CacheSize)
	setInt(&base.LineSize, f.LineSize)
	setInt(&base.Associativity, f.Associativity)
	setInt(&base.StoreBufferSize, f.StoreBufferSize)
	setInt(&base.FetchBufferSize, f.FetchBufferSize)
	setInt(&base.BTBSize, f.BTBSize)
	setInt(&base.RASSize, f.RASSize)

	if f.StackSize != nil {
		base.StackSize = *f.StackSize
	}
	if f.StackBase != nil {
		base.StackBase = *f.StackBase
	}
	if f.EnableForwarding != nil {
		base.EnableForwarding = *f.EnableForwarding
	}
	if f.EnableHazardDetection != nil {
		base.EnableHazardDetection = *f.EnableHazardDetection
	}
	if f.EnableTracing != nil {
		base.EnableTracing = *f.EnableTracing
	}

	if f.WritePolicy != nil {
		switch *f.WritePolicy {
		case "write-through":
			base.WritePolicy = cache.WriteThrough
		case "write-back":
			base.WritePolicy = cache.WriteBack
		default:
			return base, fmt.Errorf("config: unknown write_policy %q (want write-through or write-back)", *f.WritePolicy)
		}
	}
	if f.ReplacementPolicy != nil {
		switch *f.ReplacementPolicy {
		case "lru":
			base.ReplacementPolicy = cache.LRU
		case "fifo":
			base.ReplacementPolicy = cache.FIFO
		case "random":
			base.ReplacementPolicy = cache.Random
		default:
			return base, fmt.Errorf("config: unknown replacement_policy %q (want lru, fifo or random)", *f.ReplacementPolicy)
		}
	}
	return base, nil
}
