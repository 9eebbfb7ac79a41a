package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// emptyModule is the smallest valid WASM binary: magic and version only.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, e)
	if e != nil {
		err := e.Close(ctx)
		assert.NoError(t, err)
	}
}

func TestNewExecutor_Options(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewExample()
	e, err := NewExecutor(ctx,
		WithLogger(logger),
		WithMemoryLimitPages(256),
		WithMaxDiagnosticSize(4096),
		WithMaxLogMessageSize(2048))
	require.NoError(t, err)
	defer e.Close(ctx)

	assert.Same(t, logger, e.cfg.logger)
	assert.Equal(t, uint32(256), e.cfg.memoryLimitPages)
	assert.Equal(t, uint32(4096), e.cfg.maxDiagnosticSize)
	assert.Equal(t, uint32(2048), e.cfg.maxLogMessageSize)
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	cfg := defaultExecutorConfig()
	WithLogger(nil)(&cfg)
	assert.NotNil(t, cfg.logger)
}

func TestLoadCompiler_InvalidBinary(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.LoadCompiler(ctx, []byte("not wasm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile module")
}

func TestLoadCompiler_MissingExports(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.LoadCompiler(ctx, emptyModule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `guest does not export "allocate"`)
}
