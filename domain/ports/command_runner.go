package ports

import (
	"context"
	"strings"
	"time"
)

// CommandRunner runs an external compiler process to completion.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (*CommandResult, error)
}

// CommandRequest describes one invocation of a command line compiler. Dir is
// the scratch directory holding its input and output files.
type CommandRequest struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	// Timeout overrides the runner's default when positive.
	Timeout time.Duration
}

// CommandResult is a finished invocation. A non-zero exit and a timeout are
// results, not errors.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
	// Truncated is set when either stream hit the runner's output limit.
	Truncated bool
}

// Succeeded reports a zero exit within the timeout.
func (r *CommandResult) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Diagnostic joins the trimmed stderr and stdout, stderr first. Shader
// compilers print warnings and errors to either stream.
func (r *CommandResult) Diagnostic() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{r.Stderr, r.Stdout} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
