package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punkvm-go/punkvm/pkg/cache"
	"github.com/punkvm-go/punkvm/pkg/vm"
)

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
memory_size = 131072
num_registers = 16
write_policy = "write-back"
replacement_policy = "fifo"
enable_forwarding = false
`))
	require.NoError(t, err)

	assert.Equal(t, 131072, cfg.MemorySize)
	assert.Equal(t, 16, cfg.NumRegisters)
	assert.Equal(t, cache.WriteBack, cfg.WritePolicy)
	assert.Equal(t, cache.FIFO, cfg.ReplacementPolicy)
	assert.False(t, cfg.EnableForwarding)

	// Untouched options keep their defaults.
	def := vm.DefaultConfig()
	assert.Equal(t, def.L1CacheSize, cfg.L1CacheSize)
	assert.Equal(t, def.RASSize, cfg.RASSize)
	assert.True(t, cfg.EnableHazardDetection)
}

func TestParseEmptyIsDefault(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, vm.DefaultConfig(), cfg)
}

func TestParseRejectsUnknownPolicy(t *testing.T) {
	_, err := Parse([]byte(`write_policy = "write-around"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write_policy")
}

func TestParseRejectsInvalidMachine(t *testing.T) {
	_, err := Parse([]byte(`num_registers = 4`))
	require.Error(t, err)
	var ce *vm.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "num_registers", ce.Option)
}
