package miniracer

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// EngineConfig controls per-context engine behavior. The zero value means
// V8 defaults with no memory limits.
type EngineConfig struct {
	// MaxHeapBytes caps the isolate heap via V8 resource constraints.
	// Zero means the V8 default.
	MaxHeapBytes uint64 `toml:"max_heap_bytes"`

	// SoftMemoryLimit and HardMemoryLimit arm the memory monitor at
	// context creation. Both can also be changed later per context.
	SoftMemoryLimit uint64 `toml:"soft_memory_limit"`
	HardMemoryLimit uint64 `toml:"hard_memory_limit"`
}

// LoadEngineConfig reads an EngineConfig from a TOML file.
func LoadEngineConfig(path string) (EngineConfig, error) {
	var cfg EngineConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("loading engine config: %w", err)
	}
	return cfg, nil
}
