package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/modanna/ShaderConductor/domain/ports"
	"github.com/modanna/ShaderConductor/host"
	"github.com/modanna/ShaderConductor/host/registry"
	"github.com/modanna/ShaderConductor/infrastructure/cli"
	"github.com/modanna/ShaderConductor/infrastructure/exec"
	"go.uber.org/zap"
)

// wasmOptions configures the wasm backend.
type wasmOptions struct {
	Module            string `json:"module" jsonschema:"description=Path to a compiler guest module"`
	MemoryLimitPages  uint32 `json:"memory_limit_pages,omitempty"`
	MaxDiagnosticSize uint32 `json:"max_diagnostic_size,omitempty"`
}

// wasmBackend owns the runtime its compiler lives in.
type wasmBackend struct {
	*host.Compiler
	executor *host.Executor
}

func (b wasmBackend) Close(ctx context.Context) error {
	if err := b.Compiler.Close(ctx); err != nil {
		_ = b.executor.Close(ctx)
		return err
	}
	return b.executor.Close(ctx)
}

// newRegistry registers the built-in backends.
func newRegistry(logger *slog.Logger, engineLogger *zap.Logger) (*registry.Registry, error) {
	r := registry.NewRegistry()

	err := r.Register("exec", cli.Options{}, func(_ context.Context, raw json.RawMessage) (ports.Backend, error) {
		var opts cli.Options
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, err
		}
		runner := exec.NewRunner(exec.WithLogger(logger))
		return ports.NopBackend(cli.New(runner, cli.WithOptions(opts), cli.WithLogger(logger))), nil
	})
	if err != nil {
		return nil, err
	}

	err = r.Register("wasm", wasmOptions{}, func(ctx context.Context, raw json.RawMessage) (ports.Backend, error) {
		var opts wasmOptions
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, err
		}
		module, err := os.ReadFile(opts.Module)
		if err != nil {
			return nil, fmt.Errorf("failed to read guest module: %w", err)
		}

		executor, err := host.NewExecutor(ctx,
			host.WithLogger(engineLogger),
			host.WithMemoryLimitPages(opts.MemoryLimitPages),
			host.WithMaxDiagnosticSize(opts.MaxDiagnosticSize))
		if err != nil {
			return nil, err
		}
		compiler, err := executor.LoadCompiler(ctx, module)
		if err != nil {
			_ = executor.Close(ctx)
			return nil, err
		}
		return wasmBackend{Compiler: compiler, executor: executor}, nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
