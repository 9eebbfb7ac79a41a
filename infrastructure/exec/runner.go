// Package exec runs external compiler executables for the command line
// backend. It implements ports.CommandRunner on os/exec with bounded
// output capture and a per-call timeout.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	osexec "os/exec"
	"slices"
	"strings"
	"time"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
)

// truncatedMarker is appended to output that hit the capture limit.
const truncatedMarker = "\n[output truncated]"

var (
	// blockedEnvPrefixes name dynamic linker variables a caller may not
	// pass to the compiler.
	blockedEnvPrefixes = []string{"LD_", "DYLD_"}

	blockedEnvExact = []string{"IFS", "LOCPATH", "BASH_ENV", "ENV"}
)

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	logger    *slog.Logger
	timeout   time.Duration
	maxOutput int
}

func defaultRunnerConfig() runnerConfig {
	return runnerConfig{
		logger:    slog.Default(),
		timeout:   60 * time.Second,
		maxOutput: DefaultMaxOutputSize,
	}
}

// WithTimeout sets the default timeout for commands that do not carry one.
func WithTimeout(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxOutput caps the bytes kept from each of stdout and stderr.
func WithMaxOutput(n int) RunnerOption {
	return func(c *runnerConfig) {
		if n > 0 {
			c.maxOutput = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(c *runnerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Runner implements ports.CommandRunner.
type Runner struct {
	cfg runnerConfig
}

var _ ports.CommandRunner = (*Runner)(nil)

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...RunnerOption) *Runner {
	cfg := defaultRunnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Runner{cfg: cfg}
}

// Run executes req. A non-zero exit or a timeout is a result, not an error;
// the error is reserved for commands that could not be started.
func (r *Runner) Run(ctx context.Context, req ports.CommandRequest) (*ports.CommandResult, error) {
	if req.Command == "" {
		return nil, &domainerrors.ValidationError{Field: "Command", Err: errors.New("command is required")}
	}

	timeout := r.cfg.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: running the configured compiler is the purpose of this function
	cmd := osexec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), sanitizeEnv(ctx, r.cfg.logger, req.Env)...)
	}

	stdout := NewBoundedBuffer(r.cfg.maxOutput)
	stderr := NewBoundedBuffer(r.cfg.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	res := &ports.CommandResult{
		Stdout:    captured(stdout),
		Stderr:    captured(stderr),
		Duration:  time.Since(start),
		Truncated: stdout.Truncated || stderr.Truncated,
	}

	r.cfg.logger.DebugContext(ctx, "command finished",
		"command", req.Command,
		"duration", res.Duration,
		"truncated", res.Truncated)

	if err == nil {
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return nil, &domainerrors.ExecError{Command: req.Command, Err: fmt.Errorf("start: %w", err)}
}

func captured(b *BoundedBuffer) string {
	if b.Truncated {
		return b.String() + truncatedMarker
	}
	return b.String()
}

// sanitizeEnv drops malformed entries and linker injection variables.
func sanitizeEnv(ctx context.Context, logger *slog.Logger, env []string) []string {
	kept := make([]string, 0, len(env))
	for _, e := range env {
		key, _, found := strings.Cut(e, "=")
		if !found {
			logger.WarnContext(ctx, "malformed environment variable skipped", "env", e)
			continue
		}
		if isBlockedEnv(strings.ToUpper(key)) {
			logger.WarnContext(ctx, "blocked environment variable", "env_var", key)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func isBlockedEnv(upperKey string) bool {
	for _, prefix := range blockedEnvPrefixes {
		if strings.HasPrefix(upperKey, prefix) {
			return true
		}
	}
	return slices.Contains(blockedEnvExact, upperKey)
}
