package engine

import "github.com/wippyai/genvalue/native"

// DefaultCheckerModule is the import module name of the checker host module.
const DefaultCheckerModule = "checker"

// Config holds configuration for engine creation
type Config struct {
	// Store receives every value the engine creates. nil means the global
	// store.
	Store *native.Store

	// CheckerModule names the host module guests import the fault report
	// function from. Empty means DefaultCheckerModule.
	CheckerModule string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// PointerSize is the guest pointer width in bytes used to lay out
	// pointer members. 0 means 4 (wasm32).
	PointerSize uint32

	// DisableChecker skips the checker host module. Guests importing it
	// then fail to instantiate.
	DisableChecker bool
}

func (c *Config) withDefaults() Config {
	var cfg Config
	if c != nil {
		cfg = *c
	}
	if cfg.Store == nil {
		cfg.Store = native.Global()
	}
	if cfg.CheckerModule == "" {
		cfg.CheckerModule = DefaultCheckerModule
	}
	if cfg.PointerSize == 0 {
		cfg.PointerSize = 4
	}
	return cfg
}
