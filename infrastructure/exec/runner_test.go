package exec

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX utilities")
	}
}

func quietRunner(opts ...RunnerOption) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(append([]RunnerOption{WithLogger(logger)}, opts...)...)
}

func TestRunner_Success(t *testing.T) {
	skipOnWindows(t)

	res, err := quietRunner().Run(context.Background(), ports.CommandRequest{
		Command: "echo",
		Args:    []string{"hello", "world"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello world\n", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.False(t, res.TimedOut)
	assert.False(t, res.Truncated)
	assert.True(t, res.Succeeded())
	assert.Positive(t, res.Duration)
}

func TestRunner_ExitCode(t *testing.T) {
	skipOnWindows(t)

	res, err := quietRunner().Run(context.Background(), ports.CommandRequest{Command: "false"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
}

func TestRunner_MissingCommand(t *testing.T) {
	_, err := quietRunner().Run(context.Background(), ports.CommandRequest{Command: "nonexistentcompiler12345"})
	require.Error(t, err)

	var execErr *domainerrors.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "nonexistentcompiler12345", execErr.Command)
}

func TestRunner_EmptyCommand(t *testing.T) {
	_, err := quietRunner().Run(context.Background(), ports.CommandRequest{})

	var ve *domainerrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Command", ve.Field)
}

func TestRunner_Timeout(t *testing.T) {
	skipOnWindows(t)
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}

	res, err := quietRunner().Run(context.Background(), ports.CommandRequest{
		Command: "sleep",
		Args:    []string{"2"},
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunner_TruncatesOutput(t *testing.T) {
	skipOnWindows(t)

	res, err := quietRunner(WithMaxOutput(4)).Run(context.Background(), ports.CommandRequest{
		Command: "echo",
		Args:    []string{"0123456789"},
	})
	require.NoError(t, err)
	assert.Equal(t, "0123"+truncatedMarker, res.Stdout)
	assert.True(t, res.Truncated)
}

func TestRunner_Env(t *testing.T) {
	skipOnWindows(t)

	res, err := quietRunner().Run(context.Background(), ports.CommandRequest{
		Command: "env",
		Env:     []string{"SC_TEST_VALUE=42", "LD_PRELOAD=/tmp/evil.so"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "SC_TEST_VALUE=42")
	assert.False(t, strings.Contains(res.Stdout, "/tmp/evil.so"))
}

func TestSanitizeEnv(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := sanitizeEnv(context.Background(), logger, []string{
		"GOOD=1",
		"malformed",
		"LD_LIBRARY_PATH=/x",
		"dyld_insert_libraries=/y",
		"BASH_ENV=/z",
		"PATH=/usr/bin",
	})
	assert.Equal(t, []string{"GOOD=1", "PATH=/usr/bin"}, got)
}
