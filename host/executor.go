package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Executor owns the wazero runtime compiler guests run in.
type Executor struct {
	runtime wazero.Runtime
	cfg     executorConfig
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rtCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rtCfg = rtCfg.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	e := &Executor{runtime: rt, cfg: cfg}
	if err := e.registerHostModule(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	cfg.logger.Debug("host: executor ready", zap.Uint32("memory_limit_pages", cfg.memoryLimitPages))
	return e, nil
}

// Close releases resources held by the executor, including every loaded
// compiler.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// LoadCompiler instantiates a compiler guest. Each call creates an
// independent instance with its own memory.
func (e *Executor) LoadCompiler(ctx context.Context, wasmBytes []byte) (*Compiler, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	// Reactor modules (-buildmode=c-shared) initialize the Go runtime here.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	c, err := newCompiler(mod, e.cfg)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	e.cfg.logger.Info("host: compiler loaded", zap.Int("wasm_bytes", len(wasmBytes)))
	return c, nil
}
