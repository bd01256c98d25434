package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/genvalue/engine"
	"github.com/wippyai/genvalue/native"
)

// fileConfig is the TOML configuration accepted by -config.
type fileConfig struct {
	CheckerModule    string `toml:"checker_module"`
	LogLevel         string `toml:"log_level"`
	Report           string `toml:"report"`
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`
	PointerSize      uint32 `toml:"pointer_size"`
	DisableChecker   bool   `toml:"disable_checker"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{LogLevel: "warn"}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("log_level in %s: %w", path, err)
	}
	return cfg, nil
}

func (c *fileConfig) engineConfig(store *native.Store) *engine.Config {
	return &engine.Config{
		Store:            store,
		CheckerModule:    c.CheckerModule,
		MemoryLimitPages: c.MemoryLimitPages,
		PointerSize:      c.PointerSize,
		DisableChecker:   c.DisableChecker,
	}
}

// newLogger builds the process logger. verbose forces debug level with
// development output.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
